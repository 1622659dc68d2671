package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/lk2023060901/xdooria-persist/pkg/app"
	"github.com/lk2023060901/xdooria-persist/pkg/catalog"
	"github.com/lk2023060901/xdooria-persist/pkg/checksum"
	"github.com/lk2023060901/xdooria-persist/pkg/compress"
	"github.com/lk2023060901/xdooria-persist/pkg/config"
	"github.com/lk2023060901/xdooria-persist/pkg/logger"
	"github.com/lk2023060901/xdooria-persist/pkg/persist"
	"github.com/lk2023060901/xdooria-persist/pkg/savestore"
)

// Config savetool 配置
type Config struct {
	Log          logger.Config              `mapstructure:"log"`
	Catalog      catalog.Config             `mapstructure:"catalog"`
	PackageCache persist.PackageCacheConfig `mapstructure:"package_cache"`
	Store        savestore.Config           `mapstructure:"store"`
	Metrics      MetricsConfig              `mapstructure:"metrics"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func defaults() map[string]any {
	store := savestore.DefaultConfig()
	cache := persist.DefaultPackageCacheConfig()
	return map[string]any{
		"log.level":            "warn",
		"log.format":           "console",
		"log.enable_console":   true,
		"package_cache.size":   cache.Size,
		"package_cache.ttl":    cache.TTL,
		"store.backend":        store.Backend,
		"store.compression":    string(store.Compression),
		"store.checksum":       string(store.Checksum),
		"store.key_prefix":     store.KeyPrefix,
		"store.redis.addrs":    store.Redis.Addrs,
		"store.postgres.table": store.Postgres.Table,
		"metrics.namespace":    "xdooria",
	}
}

const usage = `usage: savetool [flags] <command> [args]

commands:
  inspect  <file>             print a save document summary
  validate <file>             report placement conflicts and catalog misses
  repack   <in> <out>         re-envelope a save blob (--compression, --checksum)
  export   player|world <id> <out>   read a save from the store into a file
  import   <file>             write a save file into the store
  version                     print build information

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("savetool", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	app.RegisterFlags(fs)
	compression := fs.String("compression", "", "compression for repack/export (none, snappy, zstd, lz4)")
	sum := fs.String("checksum", "", "checksum for repack/export (none, crc32, crc32c, xxhash)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	if command == "version" {
		fmt.Fprintln(stdout, app.GetInfo())
		return 0
	}

	var cfg Config
	if _, err := app.LoadConfig(fs, &cfg, config.WithDefaults(defaults())); err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *compression != "" {
		cfg.Store.Compression = compress.Type(*compression)
	}
	if *sum != "" {
		cfg.Store.Checksum = checksum.Type(*sum)
	}

	l, err := logger.New(&cfg.Log, logger.WithName("savetool"))
	if err != nil {
		fmt.Fprintf(stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = l.Sync() }()

	t, err := newTool(&cfg, l, stdout)
	if err != nil {
		l.Error("failed to initialize", "error", err)
		fmt.Fprintf(stderr, "savetool: %v\n", err)
		return 1
	}
	defer t.Close()

	if err := t.dispatch(ctx, command, rest); err != nil {
		fmt.Fprintf(stderr, "savetool %s: %v\n", command, err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		return 1
	}
	return 0
}
