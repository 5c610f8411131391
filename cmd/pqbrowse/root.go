package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"

	"github.com/mixaal/parquet-viewer-go/internal/browser"
	"github.com/mixaal/parquet-viewer-go/internal/entrycache"
	"github.com/mixaal/parquet-viewer-go/internal/parquetview"
	"github.com/mixaal/parquet-viewer-go/internal/provider"
	"github.com/mixaal/parquet-viewer-go/internal/rangecache"
	"github.com/mixaal/parquet-viewer-go/internal/shell"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	httpTimeout  time.Duration
	httpRetryMax int
	cacheEnabled bool
	cacheSizeMB  int
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pqbrowse [endpoint]",
		Version: version,
		Short:   "Browse local directories, HTTP listings, and ZIP archives, with Parquet previews",
		Long: `pqbrowse is an interactive browser that treats a local directory, a remote
HTTP object-store listing, and a ZIP archive (on disk or served over HTTP
byte ranges) as the same kind of thing: something you can ls, cd into, and
view. Parquet files found along the way render as a table preview.

Commands inside the shell:
  ls [path]            List files in the current directory or archive
  cd <path>            Change directory (".." for parent, "/..." or "http://..." for absolute)
  pwd                  Print the current endpoint
  view <file> [rows]   View a file; Parquet files render as a table (default 20 rows)
  history              Show command history
  help                 Show this help message
  exit                 Exit

Examples:
  pqbrowse /var/data
  pqbrowse https://objects.example.com/bucket/
  pqbrowse /var/data/archive.zip`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowse,
	}

	cmd.Flags().DurationVar(&httpTimeout, "http-timeout", 30*time.Second, "Per-request timeout for the HTTP byte source")
	cmd.Flags().IntVar(&httpRetryMax, "http-retry-max", 3, "Maximum retries for transient HTTP failures")
	cmd.Flags().BoolVar(&cacheEnabled, "cache", true, "Enable in-memory range and entry caching")
	cmd.Flags().IntVar(&cacheSizeMB, "cache-size-mb", 256, "Maximum size in megabytes of the in-memory entry cache")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	endpoint := "."
	if len(args) == 1 {
		endpoint = args[0]
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = httpRetryMax
	client.HTTPClient.Timeout = httpTimeout

	var rCache *rangecache.Cache
	var eCache *entrycache.Cache
	if cacheEnabled {
		rCache = rangecache.New(1024)
		c, err := entrycache.New(cmd.Context(), cacheSizeMB, 256)
		if err != nil {
			return fmt.Errorf("pqbrowse: initializing entry cache: %w", err)
		}
		eCache = c
	}

	httpProvider := provider.NewHTTPEndpoint(client, rCache, eCache)
	localProvider := provider.NewLocalFS(eCache)
	renderer := parquetview.New()

	b := browser.New(endpoint, httpProvider, localProvider, renderer)
	sh := shell.New(b, os.Stdin, os.Stdout)
	return sh.Run(cmd.Context())
}
