// Command wowsql is a small CLI over the SDK, mainly for poking at a
// project from the shell. Credentials come from the environment or a config
// file; the SDK itself never reads either.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	wowsql "github.com/WowSQL/wowsql-sdk-go"
)

// Config holds CLI settings. Environment variables (WOWSQL_URL,
// WOWSQL_API_KEY, WOWSQL_STORAGE, WOWSQL_TIMEOUT) override the file.
type Config struct {
	URL     string `mapstructure:"url" json:"url"`
	APIKey  string `mapstructure:"api_key" json:"api_key"`
	Storage string `mapstructure:"storage" json:"storage"` // project slug or storage base URL
	Timeout string `mapstructure:"timeout" json:"timeout"` // e.g. "30s"
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wowsql", "cli_config.json"), nil
}

func loadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WOWSQL")
	v.AutomaticEnv()
	for _, key := range []string{"url", "api_key", "storage", "timeout"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path, err := configPath(); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		// The file is optional; env alone is a valid setup.
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) options() ([]wowsql.Option, error) {
	if c.Timeout == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return []wowsql.Option{wowsql.WithTimeout(d)}, nil
}

func newClient() (*wowsql.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	return wowsql.NewClient(cfg.URL, cfg.APIKey, opts...)
}

func newStorageClient() (*wowsql.StorageClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	target := cfg.Storage
	if target == "" {
		target = cfg.URL
	}
	return wowsql.NewStorageClient(target, cfg.APIKey, opts...)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// --- Cobra root and top-level commands ---

var rootCmd = &cobra.Command{
	Use:   "wowsql",
	Short: "WowSQL CLI",
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service liveness",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		hs, err := c.Health(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(hs)
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		tables, err := c.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Println(t)
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema <table>",
	Short: "Show a table schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		schema, err := c.GetTableSchema(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(schema)
	},
}

// --- query command ---

var (
	queryWhere   []string
	querySelect  string
	queryOrderBy string
	queryDesc    bool
	queryLimit   int
	queryOffset  int
)

// applyWhere parses a col__op=value flag into a builder call.
func applyWhere(q *wowsql.QueryBuilder, expr string) (*wowsql.QueryBuilder, error) {
	eq := strings.SplitN(expr, "=", 2)
	sep := strings.LastIndex(eq[0], "__")
	if sep < 1 {
		return nil, fmt.Errorf("invalid --where %q, want col__op=value", expr)
	}
	col, op := eq[0][:sep], eq[0][sep+2:]
	var value string
	if len(eq) == 2 {
		value = eq[1]
	}
	switch wowsql.Operator(op) {
	case wowsql.OpEq:
		return q.Eq(col, value), nil
	case wowsql.OpNeq:
		return q.Neq(col, value), nil
	case wowsql.OpGt:
		return q.Gt(col, value), nil
	case wowsql.OpGte:
		return q.Gte(col, value), nil
	case wowsql.OpLt:
		return q.Lt(col, value), nil
	case wowsql.OpLte:
		return q.Lte(col, value), nil
	case wowsql.OpLike:
		return q.Like(col, value), nil
	case wowsql.OpIsNull:
		return q.IsNull(col), nil
	case wowsql.OpIsNotNull:
		return q.IsNotNull(col), nil
	default:
		return nil, fmt.Errorf("unknown operator %q in --where %q", op, expr)
	}
}

var queryCmd = &cobra.Command{
	Use:   "query <table>",
	Short: "Run a read query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		q := c.Table(args[0])
		for _, expr := range queryWhere {
			if q, err = applyWhere(q, expr); err != nil {
				return err
			}
		}
		if querySelect != "" {
			q = q.Select(strings.Split(querySelect, ",")...)
		}
		if queryOrderBy != "" {
			q = q.OrderBy(queryOrderBy, queryDesc)
		}
		if queryLimit >= 0 {
			q = q.Limit(queryLimit)
		}
		if queryOffset >= 0 {
			q = q.Offset(queryOffset)
		}
		rows, err := q.Get(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(rows.Data)
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <table> <json>",
	Short: "Insert one record from a JSON object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		var rec wowsql.Record
		if err := json.Unmarshal([]byte(args[1]), &rec); err != nil {
			return fmt.Errorf("invalid record JSON: %w", err)
		}
		created, err := c.Table(args[0]).Create(cmd.Context(), rec)
		if err != nil {
			return err
		}
		return printJSON(created)
	},
}

// --- storage commands ---

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "File storage operations",
}

var storageLsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStorageClient()
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		files, err := s.ListFiles(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%10d  %s\n", f.Size, f.Key)
		}
		return nil
	},
}

var storagePutCmd = &cobra.Command{
	Use:   "put <local-path> <remote-key>",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStorageClient()
		if err != nil {
			return err
		}
		fd, err := s.UploadFromPath(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(fd)
	},
}

var storageGetCmd = &cobra.Command{
	Use:   "get <remote-key> <local-path>",
	Short: "Download a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStorageClient()
		if err != nil {
			return err
		}
		return s.DownloadToPath(cmd.Context(), args[0], args[1])
	},
}

var storageRmCmd = &cobra.Command{
	Use:   "rm <remote-key>...",
	Short: "Delete files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStorageClient()
		if err != nil {
			return err
		}
		res := s.DeleteFiles(cmd.Context(), args)
		for _, k := range res.Deleted {
			fmt.Println("deleted", k)
		}
		for _, f := range res.Failed {
			fmt.Fprintln(os.Stderr, f.Error())
		}
		return res.Err()
	},
}

var storageURLExpires time.Duration

var storageURLCmd = &cobra.Command{
	Use:   "url <remote-key>",
	Short: "Get a presigned download URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStorageClient()
		if err != nil {
			return err
		}
		su, err := s.GetFileURL(cmd.Context(), args[0], storageURLExpires)
		if err != nil {
			return err
		}
		return printJSON(su)
	},
}

var storageQuotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStorageClient()
		if err != nil {
			return err
		}
		q, err := s.GetQuota(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("used %.2f GB of %.2f GB (%.1f%%)\n",
			q.UsedGB, float64(q.LimitBytes)/(1<<30), q.UsagePercent)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryWhere, "where", nil, "filter as col__op=value (repeatable)")
	queryCmd.Flags().StringVar(&querySelect, "select", "", "comma-separated columns")
	queryCmd.Flags().StringVar(&queryOrderBy, "order-by", "", "order column")
	queryCmd.Flags().BoolVar(&queryDesc, "desc", false, "descending order")
	queryCmd.Flags().IntVar(&queryLimit, "limit", -1, "row limit")
	queryCmd.Flags().IntVar(&queryOffset, "offset", -1, "row offset")

	storageURLCmd.Flags().DurationVar(&storageURLExpires, "expires", time.Hour, "URL validity")

	storageCmd.AddCommand(storageLsCmd, storagePutCmd, storageGetCmd, storageRmCmd, storageURLCmd, storageQuotaCmd)
	rootCmd.AddCommand(healthCmd, tablesCmd, schemaCmd, queryCmd, insertCmd, storageCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
