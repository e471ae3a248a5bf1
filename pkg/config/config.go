// Package config loads gojni settings from a gojni.toml file and GOJNI_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/daimatz/gojni/pkg/jni"
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = "gojni.toml"
	// EnvPrefix prefixes the environment variables that override the file.
	EnvPrefix = "GOJNI"
)

// Config holds the settings of one gojni invocation.
type Config struct {
	// ClassPath lists directories, jars and jmods searched for
	// application classes, separated like the java -cp flag.
	ClassPath string `mapstructure:"classpath" toml:"classpath"`
	// JavaBaseJmod is the java.base.jmod bootstrap classes come from.
	// When empty it is discovered from JAVA_HOME.
	JavaBaseJmod string `mapstructure:"java_base_jmod" toml:"java_base_jmod"`
	// JNIVersion is the interface version the main thread negotiates.
	JNIVersion string `mapstructure:"jni_version" toml:"jni_version"`
	// CheckJNI makes contract violations fatal.
	CheckJNI bool `mapstructure:"check_jni" toml:"check_jni"`
	// VerboseJNI traces native linking.
	VerboseJNI bool   `mapstructure:"verbose_jni" toml:"verbose_jni"`
	LogLevel   string `mapstructure:"log_level" toml:"log_level"`
	// NativeLibraries are shared objects loaded before main runs.
	NativeLibraries []string `mapstructure:"native_libraries" toml:"native_libraries"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		ClassPath:       ".",
		JNIVersion:      jni.VersionString(jni.LatestVersion),
		LogLevel:        "warn",
		NativeLibraries: []string{},
	}
}

// LoadOptions select the file Load reads.
type LoadOptions struct {
	// Path is an explicit configuration file. It must exist.
	Path string
	// Dir is searched for FileName when Path is empty. A missing file is
	// not an error.
	Dir string
}

// ErrInvalid is wrapped by validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Load merges defaults, the configuration file and the environment. It
// returns the path of the file read, or "" when none was.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	v.SetConfigType("toml")

	defaults := Default()
	v.SetDefault("classpath", defaults.ClassPath)
	v.SetDefault("java_base_jmod", defaults.JavaBaseJmod)
	v.SetDefault("jni_version", defaults.JNIVersion)
	v.SetDefault("check_jni", defaults.CheckJNI)
	v.SetDefault("verbose_jni", defaults.VerboseJNI)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("native_libraries", defaults.NativeLibraries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.Path
	if path == "" {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	if _, ok := jni.ParseVersion(c.JNIVersion); !ok {
		return fmt.Errorf("%w: jni_version %q is not a supported JNI version", ErrInvalid, c.JNIVersion)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	return nil
}

// Version returns the parsed jni_version.
func (c *Config) Version() jni.Int {
	v, ok := jni.ParseVersion(c.JNIVersion)
	if !ok {
		return jni.LatestVersion
	}
	return v
}

// Level returns the parsed log_level, warn when it does not parse.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return l
}

// jmodGlob locates distribution JDKs when JAVA_HOME is unset.
var jmodGlob = "/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod"

// JmodPath returns the java.base.jmod to load bootstrap classes from: the
// configured path, then JAVA_BASE_JMOD, then the jmods directory of
// JAVA_HOME, then the first installed OpenJDK. It returns "" when none
// exists.
func (c *Config) JmodPath() string {
	if c.JavaBaseJmod != "" {
		return c.JavaBaseJmod
	}
	if p := os.Getenv("JAVA_BASE_JMOD"); p != "" {
		return p
	}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		p := filepath.Join(home, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob(jmodGlob)
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

// Write renders cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return nil
}

// WriteFile writes cfg to path, refusing to replace an existing file
// unless force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
