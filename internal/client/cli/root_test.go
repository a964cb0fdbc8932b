package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/keybox/internal/client/localdb"
	"github.com/dmitrijs2005/keybox/internal/client/remote"
	"github.com/dmitrijs2005/keybox/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base32 of the RFC 6238 SHA-1 seed "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type vaultDir struct {
	t   *testing.T
	dir string
	cfg string
}

func newVaultDir(t *testing.T) *vaultDir {
	t.Helper()

	oldClock := clock
	clock = timex.FixedClock(time.Unix(59, 0).UTC())
	t.Cleanup(func() { clock = oldClock })
	stubTerminal(t, false, nil, nil)

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"log_level":"error"}`), 0o600))
	return &vaultDir{t: t, dir: filepath.Join(dir, "vault"), cfg: cfg}
}

func (v *vaultDir) run(stdin string, args ...string) (stdout, stderr string, code int) {
	v.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-c", v.cfg, "--data-dir", v.dir}, args...)
	code = Execute(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (v *vaultDir) mustRun(stdin string, args ...string) string {
	v.t.Helper()
	out, errOut, code := v.run(stdin, args...)
	require.Equal(v.t, 0, code, "keybox %v\nstdout: %s\nstderr: %s", args, out, errOut)
	return out
}

var idPattern = regexp.MustCompile(`(?:token|account|entry|restore) ([0-9a-f]{8})`)

func lastID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindAllStringSubmatch(out, -1)
	require.NotEmpty(t, m, "no id in %q", out)
	return m[len(m)-1][1]
}

func TestVersion_DoesNotOpenVault(t *testing.T) {
	v := newVaultDir(t)
	out := v.mustRun("", "version")
	assert.Contains(t, out, "keybox version")

	_, err := os.Stat(filepath.Join(v.dir, localdb.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate(t *testing.T) {
	v := newVaultDir(t)

	pw := strings.TrimSpace(v.mustRun("", "generate", "password", "-l", "20", "--no-symbols"))
	assert.Len(t, pw, 20)
	assert.Regexp(t, `^[A-Za-z0-9]+$`, pw)

	_, _, code := v.run("", "generate", "password", "-l", "3")
	assert.Equal(t, 1, code)

	secret := strings.TrimSpace(v.mustRun("", "generate", "secret"))
	assert.Regexp(t, `^[A-Z2-7]{16}$`, secret)

	uri := strings.TrimSpace(v.mustRun("", "generate", "uri", "--issuer", "ACME", "--account", "bob", "--secret", "jbswy3dpehpk3pxp"))
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"), uri)
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
}

func TestToken_Lifecycle(t *testing.T) {
	v := newVaultDir(t)

	out := v.mustRun("", "token", "add", "RFC", "6238", "--secret", rfcSecret)
	id := lastID(t, out)

	out = v.mustRun("", "token", "list")
	assert.Contains(t, out, "RFC")
	assert.Contains(t, out, id)

	out = v.mustRun("", "token", "code", id)
	assert.Equal(t, "287082 (1s left)\n", out)

	out = v.mustRun("", "codes")
	assert.Contains(t, out, "287082")

	out = v.mustRun("", "token", "show", id)
	assert.Contains(t, out, "Secret:  "+rfcSecret)

	out = v.mustRun("", "token", "edit", id, "--issuer", "Renamed")
	trashID := lastID(t, out)
	assert.Contains(t, v.mustRun("", "token", "list"), "Renamed")

	out = v.mustRun("", "token", "restore", trashID)
	assert.Contains(t, out, "RFC")
	assert.NotContains(t, v.mustRun("", "token", "list"), "Renamed")

	out = v.mustRun("y\n", "token", "delete", id)
	trashID = lastID(t, out)
	assert.Equal(t, "No tokens.\n", v.mustRun("", "token", "list"))
	assert.Contains(t, v.mustRun("", "trash", "list"), trashID)

	v.mustRun("", "token", "restore", trashID)
	assert.Contains(t, v.mustRun("", "token", "list"), id)
}

func TestToken_DeleteCancelled(t *testing.T) {
	v := newVaultDir(t)
	id := lastID(t, v.mustRun("", "token", "add", "X", "y", "--secret", rfcSecret))

	out := v.mustRun("n\n", "token", "delete", id)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, v.mustRun("", "token", "list"), id)
}

func TestToken_AddRejectsBadSecret(t *testing.T) {
	v := newVaultDir(t)

	_, errOut, code := v.run("", "token", "add", "X", "y", "--secret", "not base32!")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")

	_, _, code = v.run("\n", "token", "add", "X", "y")
	assert.Equal(t, 1, code)

	assert.Equal(t, "No tokens.\n", v.mustRun("", "token", "list"))
}

func TestToken_ImportAndPromptedSecret(t *testing.T) {
	v := newVaultDir(t)

	v.mustRun("", "token", "import", "otpauth://totp/GitHub:octo?secret=JBSWY3DPEHPK3PXP&issuer=GitHub")
	v.mustRun("jbswy3dpehpk3pxp\n", "token", "add", "Piped", "alice")

	out := v.mustRun("", "token", "list", "git")
	assert.Contains(t, out, "GitHub")
	assert.NotContains(t, out, "Piped")

	id := lastID(t, v.mustRun("", "token", "add", "Gen", "g", "--generate"))
	out = v.mustRun("", "token", "show", "--uri", id)
	assert.Contains(t, out, "otpauth://totp/Gen:g?")
}

func TestAccount_Lifecycle(t *testing.T) {
	v := newVaultDir(t)

	out := v.mustRun("", "account", "add", "Steam", "-u", "gamer", "-p", "hunter2", "--category", "game")
	id := lastID(t, out)

	out = v.mustRun("", "account", "list", "--category", "Game")
	assert.Contains(t, out, "Steam")
	assert.Equal(t, "No accounts.\n", v.mustRun("", "account", "list", "--category", "Email"))

	out = v.mustRun("", "account", "show", id)
	assert.Contains(t, out, "Password: ********")
	out = v.mustRun("", "account", "show", id, "--reveal")
	assert.Contains(t, out, "Password: hunter2")

	v.mustRun("", "account", "edit", id, "--note", "main")
	assert.Contains(t, v.mustRun("", "account", "show", id), "Note:     main")

	trashID := lastID(t, v.mustRun("", "account", "delete", "-y", id))
	assert.Equal(t, "No accounts.\n", v.mustRun("", "account", "list"))
	v.mustRun("", "account", "restore", trashID)
	assert.Contains(t, v.mustRun("", "account", "list"), "Steam")

	out = v.mustRun("", "account", "add", "Mail", "--generate")
	assert.Regexp(t, `Password: \S{16}`, out)

	_, _, code := v.run("", "account", "add", "Bank", "-p", "x", "--category", "bank")
	assert.Equal(t, 1, code)
}

func TestActivity_ListReadRestore(t *testing.T) {
	v := newVaultDir(t)

	id := lastID(t, v.mustRun("", "token", "add", "RFC", "6238", "--secret", rfcSecret))
	v.mustRun("", "token", "delete", "-y", id)

	out := v.mustRun("", "activity", "list")
	assert.Contains(t, out, "Deleted Token")
	assert.Contains(t, out, "Added Token")
	assert.Contains(t, out, "2 unread")

	v.mustRun("", "activity", "read")
	assert.Equal(t, "No activity.\n", v.mustRun("", "activity", "list", "--unread"))

	m := regexp.MustCompile(`([0-9a-f]{8}) .*Deleted Token`).FindStringSubmatch(v.mustRun("", "activity", "list"))
	require.Len(t, m, 2)
	v.mustRun("", "activity", "restore", m[1])
	assert.Contains(t, v.mustRun("", "token", "list"), id)

	v.mustRun("", "activity", "clear")
	assert.Equal(t, "No activity.\n", v.mustRun("", "activity", "list"))
}

func TestReset(t *testing.T) {
	v := newVaultDir(t)
	v.mustRun("", "token", "add", "RFC", "6238", "--secret", rfcSecret)
	v.mustRun("", "account", "add", "Steam", "-p", "x")

	v.mustRun("", "reset", "--yes")
	assert.Equal(t, "No tokens.\n", v.mustRun("", "token", "list"))
	assert.Equal(t, "No accounts.\n", v.mustRun("", "account", "list"))
	assert.Contains(t, v.mustRun("", "activity", "list"), "Data Reset")
}

func TestPIN_GuardsReveal(t *testing.T) {
	v := newVaultDir(t)
	id := lastID(t, v.mustRun("", "token", "add", "RFC", "6238", "--secret", rfcSecret))

	_, errOut, code := v.run("", "pin", "set")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "PIN authorization is off")

	v.mustRun("1234\n1234\n", "--auth", "pin", "pin", "set")

	_, errOut, code = v.run("0000\n", "--auth", "pin", "token", "show", id)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unauthorized")

	out := v.mustRun("1234\n", "--auth", "pin", "token", "show", id)
	assert.Contains(t, out, rfcSecret)

	v.mustRun("1234\n", "--auth", "pin", "pin", "clear")
	assert.Contains(t, v.mustRun("", "--auth", "pin", "token", "show", id), rfcSecret)
}

func TestSync_RequiresTransport(t *testing.T) {
	v := newVaultDir(t)

	_, errOut, code := v.run("", "sync", "enable")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, remote.ErrNotConfigured.Error())

	out := v.mustRun("", "sync", "status")
	assert.Contains(t, out, "Enabled:   false")
	assert.Contains(t, out, "Last sync: never")
}

func TestSync_TwoVaultsConverge(t *testing.T) {
	cloud := remote.NewMemory()
	old := openTransport
	openTransport = func(context.Context, remote.Options) (remote.Transport, error) { return cloud, nil }
	t.Cleanup(func() { openTransport = old })

	a := newVaultDir(t)
	b := newVaultDir(t)

	a.mustRun("", "token", "add", "RFC", "6238", "--secret", rfcSecret)
	out := a.mustRun("", "--transport", "grpc", "sync", "enable")
	assert.Contains(t, out, "Cloud sync enabled")
	assert.Contains(t, out, "uploaded")

	out = b.mustRun("", "--transport", "grpc", "sync", "now")
	assert.Contains(t, out, "merged 0")
	assert.NotContains(t, b.mustRun("", "token", "list"), "RFC")

	out = b.mustRun("", "--transport", "grpc", "sync", "pull")
	assert.Contains(t, out, "merged 1")
	assert.Contains(t, b.mustRun("", "token", "list"), "RFC")
	assert.Contains(t, b.mustRun("", "activity", "list"), "Cloud Sync")

	out = a.mustRun("", "--transport", "grpc", "sync", "status")
	assert.Contains(t, out, "Enabled:   true")
	assert.NotContains(t, out, "never")

	a.mustRun("", "--transport", "grpc", "sync", "disable")
	assert.Contains(t, a.mustRun("", "sync", "status"), "Enabled:   false")
}
