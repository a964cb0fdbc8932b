package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags are the command-line overrides shared by every keybox command.
type Flags struct {
	fs *pflag.FlagSet

	ConfigFile string

	dataDir      string
	transport    string
	serverAddr   string
	accessToken  string
	keySource    string
	authMode     string
	logLevel     string
	trashLimit   int
	pollInterval time.Duration
}

// RegisterFlags adds the override flags to fs, normally the root command's
// persistent flag set.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to JSON config file")
	fs.StringVar(&f.dataDir, "data-dir", "", "vault data directory (env "+EnvDataDir+")")
	fs.StringVar(&f.transport, "transport", "", "cloud transport: none, grpc, http or s3")
	fs.StringVarP(&f.serverAddr, "server", "a", "", "keybox-server address")
	fs.StringVar(&f.accessToken, "token", "", "access token for keybox-server (env "+EnvToken+")")
	fs.StringVar(&f.keySource, "key-source", "", "vault key source: static, keyring or passphrase")
	fs.StringVar(&f.authMode, "auth", "", "authorization for sensitive actions: none or pin")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.IntVar(&f.trashLimit, "trash-limit", 0, "keep at most this many trash entries (0 = unlimited)")
	fs.DurationVar(&f.pollInterval, "poll-interval", 0, "how often to poll or retry the cloud watch, e.g. 15s")
	return f
}

// Apply copies every flag the user actually set into c.
func (f *Flags) Apply(c *Config) {
	set := func(name string, dst *string, v string) {
		if f.fs.Changed(name) {
			*dst = v
		}
	}
	set("data-dir", &c.DataDir, f.dataDir)
	set("transport", &c.Transport, f.transport)
	set("server", &c.ServerAddr, f.serverAddr)
	set("token", &c.AccessToken, f.accessToken)
	set("key-source", &c.KeySource, f.keySource)
	set("auth", &c.AuthMode, f.authMode)
	set("log-level", &c.LogLevel, f.logLevel)

	if f.fs.Changed("trash-limit") {
		c.TrashLimit = f.trashLimit
	}
	if f.fs.Changed("poll-interval") {
		c.PollInterval = f.pollInterval
	}
}
