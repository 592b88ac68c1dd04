package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/linkmeir/linkvault/internal/auth"
	"github.com/linkmeir/linkvault/internal/collection"
	"github.com/linkmeir/linkvault/internal/models"
)

var (
	addDescription string
	addCategory    string
)

var addCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a link or note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		item, err := a.engine.Add(args[0], addDescription, addCategory)
		if err != nil {
			return err
		}

		kind := "note"
		if collection.IsLink(item.Content) {
			kind = "link"
		}
		fmt.Printf("Added %s %d (%s)\n", kind, item.ID, item.DisplayName())
		return nil
	},
}

var (
	listQuery    string
	listCategory string
	listSort     string
	listTrash    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		var items []models.Item
		if listTrash {
			items = a.engine.TrashItems()
		} else {
			mode := collection.SortByDate
			if listSort == "name" {
				mode = collection.SortByName
			}
			items = a.engine.ListView(listQuery, listCategory, mode)
		}

		if len(items) == 0 {
			fmt.Println("No items.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tCATEGORY\tDATE\tCONTENT")
		for _, item := range items {
			kind := "note"
			if collection.IsLink(item.Content) {
				kind = "link"
			}
			date := item.Date
			if t := item.Time(); !t.IsZero() {
				date = t.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", item.ID, kind, item.Category, date, item.DisplayName())
		}
		return w.Flush()
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Move an item to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}

		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		if err := a.engine.SoftDelete(id); err != nil {
			return err
		}
		fmt.Printf("Moved %d to trash\n", id)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import items from a JSON export",
	Long: `import reads a JSON array of items and inserts the ones whose ids
are not already in the vault. A malformed file changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		n, err := a.engine.ImportPayload(data)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d new items\n", n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export active items to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		data, err := a.engine.Export()
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		fmt.Printf("Exported %d items to %s\n", len(a.engine.Items()), args[0])
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		for _, c := range a.engine.Categories() {
			fmt.Println(c)
		}
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Sign in with a vaultd access token",
	Long: `login validates the token locally, stores it in the config file
and performs the initial sync. The server state wins over local items on
first sign-in; items that only exist locally are replaced unless the
server has no document yet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.RemoteURL == "" {
			return fmt.Errorf("remote_url is not configured")
		}

		identity, err := auth.IdentityFromToken(args[0])
		if err != nil {
			return err
		}

		a.cfg.AuthToken = args[0]
		if err := a.cfg.Save(cfgPath); err != nil {
			return err
		}

		name := identity.DisplayName
		if name == "" {
			name = identity.UID
		}
		fmt.Printf("Signed in as %s\n", name)
		fmt.Println("The server copy becomes authoritative on the next command.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and return to the local vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.AuthToken == "" {
			fmt.Println("Not signed in.")
			return nil
		}

		authenticator := auth.NewTokenAuthenticator()
		authenticator.OnAuthStateChanged(a.engine.HandleAuthChange)
		if err := authenticator.SignOut(context.Background()); err != nil {
			return err
		}

		a.cfg.AuthToken = ""
		if err := a.cfg.Save(cfgPath); err != nil {
			return err
		}
		fmt.Println("Signed out. The vault now shows the last local snapshot.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status and vault counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.finish()

		fmt.Printf("Sync:       %s\n", a.engine.Status())
		if identity := a.engine.Identity(); identity != nil {
			name := identity.DisplayName
			if name == "" {
				name = identity.UID
			}
			fmt.Printf("Identity:   %s\n", name)
		} else {
			fmt.Println("Identity:   signed out")
		}
		fmt.Printf("Items:      %d\n", len(a.engine.Items()))
		fmt.Printf("Trash:      %d\n", len(a.engine.TrashItems()))
		fmt.Printf("Categories: %d\n", len(a.engine.Categories()))
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addDescription, "desc", "d", "", "optional description shown instead of the raw content")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category (defaults to general)")

	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "substring filter on content, description and category")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "exact category filter")
	listCmd.Flags().StringVarP(&listSort, "sort", "s", "date", "sort order: date or name")
	listCmd.Flags().BoolVar(&listTrash, "trash", false, "list trashed items instead")
}
