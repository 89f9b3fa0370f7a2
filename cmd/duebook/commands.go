package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okatsu/duebook/internal/backup"
	"github.com/okatsu/duebook/internal/config"
)

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download a backup of the store to a JSON file",
	Long: `Download a backup of the store to a JSON file.

Examples:
  duebook export
  duebook export --out ./backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = backup.Filename(time.Now())
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/export")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading export: %w", err)
		}

		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}

		printSuccess("Exported store to %s", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file (default: conventional export filename)")
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a backup file into the store",
	Long: `Restore a backup file into the store.

The merge policy decides what happens to keys that already exist:
  overwrite  replace existing values (default)
  add-only   keep existing values, only add missing keys

Examples:
  duebook import ./backup.json
  duebook import ./backup.json --policy add-only`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policyStr, _ := cmd.Flags().GetString("policy")
		policy, err := backup.ParsePolicy(policyStr)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.doRaw(cmd.Context(), "POST", "/api/import?policy="+string(policy), data)
		if err != nil {
			return err
		}

		var result struct {
			Status string `json:"status"`
			Added  int    `json:"added"`
			Total  int    `json:"total"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if policy == backup.PolicyAddOnly {
			printSuccess("Imported %s: %d of %d keys added", args[0], result.Added, result.Total)
		} else {
			printSuccess("Imported %s: %d keys written", args[0], result.Added)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("policy", string(backup.PolicyOverwrite), "merge policy: overwrite or add-only")
}

// --- store plumbing ---

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the raw stored value for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/store/"+args[0])
		if err != nil {
			return err
		}

		var item map[string]string
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}

		fmt.Println(item["value"])
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a raw string value under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/api/store/"+key, map[string]string{"value": value})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every key in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/store")
		if err != nil {
			return err
		}

		var items map[string]string
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("(empty store)")
			return nil
		}
		for key := range items {
			fmt.Println(key)
		}
		return nil
	},
}

// --- backups ---

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Show recent export/import history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/backups?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []struct {
			Kind      string    `json:"kind"`
			Policy    string    `json:"policy"`
			KeysAdded int       `json:"keys_added"`
			KeysTotal int       `json:"keys_total"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}
		for _, r := range records {
			line := fmt.Sprintf("%s  %-7s", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Kind)
			if r.Kind == "import" {
				line += fmt.Sprintf("  policy=%s added=%d/%d", r.Policy, r.KeysAdded, r.KeysTotal)
			} else {
				line += fmt.Sprintf("  keys=%d", r.KeysTotal)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	backupsCmd.Flags().Int("limit", 20, "maximum number of history entries")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage duebook configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s", info.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w (valid keys: %v)", err, config.ValidKeys())
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
