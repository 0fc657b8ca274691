package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/util"
)

var (
	dirsCmd = &cobra.Command{
		Use:   "dirs",
		Short: "Manage the media directories scanned by default",
		Long: `Media directories are scan roots kept in the user store.

Adding a directory whitelists it with everything below it. Removing a
directory below a whitelisted one blacklists it instead, so its files are
skipped by scan and watch.`,
	}

	dirsAddCmd = &cobra.Command{
		Use:   "add <dir>",
		Short: "Whitelist a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runDirsAdd,
	}

	dirsRemoveCmd = &cobra.Command{
		Use:   "remove <dir>",
		Short: "Stop scanning a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runDirsRemove,
	}

	dirsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List whitelisted directories",
		Args:  cobra.NoArgs,
		RunE:  runDirsList,
	}

	opsCmd = &cobra.Command{
		Use:   "ops",
		Short: "Inspect the log of pending operations",
	}

	opsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List logged operations, newest first",
		Args:  cobra.NoArgs,
		RunE:  runOpsList,
	}

	opsClearCmd = &cobra.Command{
		Use:   "clear [ids...]",
		Short: "Remove the given operations, or all of them",
		RunE:  runOpsClear,
	}

	searchHistoryCmd = &cobra.Command{
		Use:   "search-history [prefix]",
		Short: "List recent searches",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearchHistory,
	}
)

func init() {
	dirsListCmd.Flags().Bool("blacklist", false, "list blacklisted directories instead")
	dirsCmd.AddCommand(dirsAddCmd, dirsRemoveCmd, dirsListCmd)

	opsCmd.AddCommand(opsListCmd, opsClearCmd)

	searchHistoryCmd.Flags().Int("limit", 20, "number of entries")
	searchHistoryCmd.Flags().Bool("clear", false, "clear the search history")

	rootCmd.AddCommand(dirsCmd, opsCmd, searchHistoryCmd)
}

func runDirsAdd(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	return withApp(func(a *app) error {
		if err := a.users.AddMediaDir(dir); err != nil {
			return err
		}
		util.SuccessLog("Added media dir %s", dir)
		if util.IsNetworkPath(dir) {
			util.InfoLog("%s is on a network share, scans will use fewer workers", dir)
		}
		return nil
	})
}

func runDirsRemove(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	return withApp(func(a *app) error {
		if err := a.users.RemoveMediaDir(dir); err != nil {
			return err
		}
		util.SuccessLog("Removed media dir %s", dir)
		return nil
	})
}

func runDirsList(cmd *cobra.Command, args []string) error {
	blacklisted, _ := cmd.Flags().GetBool("blacklist")
	return withApp(func(a *app) error {
		dirs, err := a.users.MediaDirs(blacklisted)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, dirs, func() *table {
			t := &table{header: []string{"DIRECTORY"}}
			for _, d := range dirs {
				t.add(d)
			}
			return t
		})
	})
}

func runOpsList(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ops, err := a.users.LoggedOps()
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, ops, func() *table {
			t := &table{header: []string{"ID", "TYPE", "PARAMS", "WHEN"}}
			for _, op := range ops {
				t.add(strconv.FormatInt(op.ID, 10), op.Type, formatParams(op.Params), formatTime(op.Timestamp))
			}
			return t
		})
	})
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}

func runOpsClear(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := cast.ToInt64E(arg)
		if err != nil {
			return fmt.Errorf("%w: bad op id %q", util.ErrInvalidQuery, arg)
		}
		ids = append(ids, id)
	}

	return withApp(func(a *app) error {
		var (
			n   int
			err error
		)
		if len(ids) == 0 {
			n, err = a.users.ClearOps()
		} else {
			n, err = a.users.RemoveOps(ids)
		}
		if err != nil {
			return err
		}
		util.SuccessLog("Removed %d operations", n)
		return nil
	})
}

func runSearchHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	clearAll, _ := cmd.Flags().GetBool("clear")
	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}

	return withApp(func(a *app) error {
		if clearAll {
			if err := a.users.ClearSearchHistory(); err != nil {
				return err
			}
			util.SuccessLog("Search history cleared")
			return nil
		}

		entries, err := a.users.SearchHistory(prefix, limit)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, entries, func() *table {
			t := &table{header: []string{"QUERY"}}
			for _, e := range entries {
				t.add(e)
			}
			return t
		})
	})
}
