package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ekanban/internal/app"
	"ekanban/internal/config"
	"ekanban/internal/db"
	"ekanban/internal/domain"
	"ekanban/internal/engine"
	"ekanban/internal/repo"
	"ekanban/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "ekb",
	Short: "E-kanban CLI",
	Long: `ekb manages electronic kanban cards between customers and suppliers.
Core concepts:
- Status chain: the ordered loop of statuses a card walks through; each step
  names the party (supplier or customer) allowed to push the card onward.
- Kanban chain: a replenishment agreement (customer, supplier, product) bound
  to a status chain, with lead time, quantity per container, and a number of
  circulating cards.
- Kanban: one physical card. Advancing it past the last status wraps back to
  the first; retiring it pulls it out of circulation for good.
- Dashboards: per-account boards grouping active cards by product, cards
  awaiting that account first.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EKANBAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(accountCmd())
	rootCmd.AddCommand(productCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(statusChainCmd())
	rootCmd.AddCommand(kanbanChainCmd())
	rootCmd.AddCommand(kanbanCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- accounts ---

func accountCmd() *cobra.Command {
	acc := &cobra.Command{Use: "account", Short: "Manage accounts"}
	acc.AddCommand(accountCreateCmd())
	acc.AddCommand(accountListCmd())
	acc.AddCommand(accountShowCmd())
	acc.AddCommand(accountDeleteCmd())
	return acc
}

func accountCreateCmd() *cobra.Command {
	var name, vat, address string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				acc, err := a.Engine.Repo.InsertAccount(ctx, domain.Account{Name: name, VATNumber: vat, Address: address})
				if err != nil {
					return err
				}
				return printJSONOrTable(acc)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "account name")
	cmd.Flags().StringVar(&vat, "vat-number", "", "VAT number")
	cmd.Flags().StringVar(&address, "address", "", "address")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListAccounts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "VAT", "Address"})
				for _, acc := range items {
					tw.AppendRow(table.Row{acc.ID, acc.Name, acc.VATNumber, acc.Address})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func accountShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				acc, err := a.Engine.Repo.GetAccount(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(acc)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "account id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func accountDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				n, err := a.Engine.Repo.CountKanbanChainsForAccount(ctx, id)
				if err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("account %d is party to %d kanban chain(s)", id, n)
				}
				return a.Engine.Repo.DeleteAccount(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "account id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- products ---

func productCmd() *cobra.Command {
	prd := &cobra.Command{Use: "product", Short: "Manage products"}
	prd.AddCommand(productCreateCmd())
	prd.AddCommand(productListCmd())
	prd.AddCommand(productDeleteCmd())
	return prd
}

func productCreateCmd() *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || name == "" {
				return fmt.Errorf("--id and --name required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p := domain.Product{ID: id, Name: name}
				if err := a.Engine.Repo.InsertProduct(ctx, p); err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "product code")
	cmd.Flags().StringVar(&name, "name", "", "product name")
	return cmd
}

func productListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListProducts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Code", "Name"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func productDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				n, err := a.Engine.Repo.CountKanbanChainsForProduct(ctx, id)
				if err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("product %s is referenced by %d kanban chain(s)", id, n)
				}
				return a.Engine.Repo.DeleteProduct(ctx, id)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "product code")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- statuses ---

func statusCmd() *cobra.Command {
	st := &cobra.Command{Use: "status", Short: "Manage statuses"}
	st.AddCommand(statusCreateCmd())
	st.AddCommand(statusListCmd())
	st.AddCommand(statusDeleteCmd())
	return st
}

func statusCreateCmd() *cobra.Command {
	var name, color string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				s, err := a.Engine.Repo.InsertStatus(ctx, domain.Status{Name: name, Color: color})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "status name")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func statusListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListStatuses(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Color"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name, s.Color})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func statusDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				n, err := a.Engine.Repo.CountChainEntriesForStatus(ctx, id)
				if err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("status %d is used by %d status chain entrie(s)", id, n)
				}
				return a.Engine.Repo.DeleteStatus(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "status id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- status chains ---

func statusChainCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "statuschain",
		Short: "Manage status chains",
		Long:  "A status chain is the ordered loop of statuses cards cycle through. Each entry names the role (supplier or customer) that may push a card out of that status.",
	}
	sc.AddCommand(statusChainCreateCmd())
	sc.AddCommand(statusChainListCmd())
	sc.AddCommand(statusChainEntriesCmd())
	sc.AddCommand(statusChainAddEntryCmd())
	sc.AddCommand(statusChainRemoveEntryCmd())
	sc.AddCommand(statusChainMoveEntryCmd())
	sc.AddCommand(statusChainDeleteCmd())
	return sc
}

func statusChainCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a status chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := a.Engine.CreateStatusChain(ctx, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "chain name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func statusChainListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List status chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListStatusChains(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func statusChainEntriesCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List the entries of a chain in succession order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				entries, err := a.Engine.ListChainEntries(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Order", "Status", "Name", "Moved by"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.Position, e.StatusID, e.StatusName, e.ActorRole.String()})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "status chain id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func statusChainAddEntryCmd() *cobra.Command {
	var id, statusID, position int64
	var role string
	cmd := &cobra.Command{
		Use:   "add-entry",
		Short: "Add a status to a chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				entry, err := a.Engine.AddChainEntry(ctx, id, statusID, position, r)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "status chain id")
	cmd.Flags().Int64Var(&statusID, "status", 0, "status id")
	cmd.Flags().Int64Var(&position, "order", 0, "position within the chain")
	cmd.Flags().StringVar(&role, "role", "", "role that moves the card onward (supplier or customer)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func statusChainRemoveEntryCmd() *cobra.Command {
	var id, statusID int64
	cmd := &cobra.Command{
		Use:   "remove-entry",
		Short: "Remove a status from a chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.RemoveChainEntry(ctx, id, statusID)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "status chain id")
	cmd.Flags().Int64Var(&statusID, "status", 0, "status id")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func statusChainMoveEntryCmd() *cobra.Command {
	var id, statusID, position int64
	cmd := &cobra.Command{
		Use:   "move-entry",
		Short: "Move a status to a new position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				entries, err := a.Engine.ReorderChainEntry(ctx, id, statusID, position)
				if err != nil {
					return err
				}
				return printJSONOrTable(entries)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "status chain id")
	cmd.Flags().Int64Var(&statusID, "status", 0, "status id")
	cmd.Flags().Int64Var(&position, "order", 0, "new position")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func statusChainDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a status chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteStatusChain(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "status chain id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- kanban chains ---

func kanbanChainCmd() *cobra.Command {
	kc := &cobra.Command{
		Use:   "kanbanchain",
		Short: "Manage kanban chains",
		Long:  "A kanban chain binds a customer, a supplier, and a product to a status chain and fixes the replenishment parameters: lead time, quantity per container, container type, and how many cards circulate.",
	}
	kc.AddCommand(kanbanChainCreateCmd())
	kc.AddCommand(kanbanChainListCmd())
	kc.AddCommand(kanbanChainShowCmd())
	kc.AddCommand(kanbanChainUpdateCmd())
	kc.AddCommand(kanbanChainDeleteCmd())
	return kc
}

func kanbanChainCreateCmd() *cobra.Command {
	var opts engine.ChainCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a kanban chain and materialize its cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if !cmd.Flags().Changed("leadtime") && a.Config != nil {
					opts.LeadTimeDays = a.Config.Defaults.LeadTimeDays
				}
				kc, err := a.Engine.CreateKanbanChain(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(kc)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.CustomerID, "customer", 0, "customer account id")
	cmd.Flags().Int64Var(&opts.SupplierID, "supplier", 0, "supplier account id")
	cmd.Flags().StringVar(&opts.ProductID, "product", "", "product code")
	cmd.Flags().Int64Var(&opts.StatusChainID, "statuschain", 0, "status chain id")
	cmd.Flags().Int64Var(&opts.LeadTimeDays, "leadtime", 0, "lead time in days")
	cmd.Flags().Float64Var(&opts.Quantity, "quantity", 0, "quantity per container")
	cmd.Flags().StringVar(&opts.ContainerType, "container", "", "container type")
	cmd.Flags().Int64Var(&opts.InitialActiveKanbans, "cards", 0, "number of circulating cards")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("supplier")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("statuschain")
	_ = cmd.MarkFlagRequired("container")
	return cmd
}

func kanbanChainListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List kanban chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListKanbanChains(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Customer", "Supplier", "Product", "Lead", "Qty", "Container", "Cards"})
				for _, kc := range items {
					tw.AppendRow(table.Row{kc.ID, kc.CustomerName, kc.SupplierName, kc.ProductName, kc.LeadTimeDays, kc.Quantity, kc.ContainerType, kc.ActiveKanbans})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func kanbanChainShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a kanban chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				kc, err := a.Engine.Repo.GetKanbanChain(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(kc)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban chain id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func kanbanChainUpdateCmd() *cobra.Command {
	var id, leadtime, cards int64
	var quantity float64
	var container string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a kanban chain",
		Long:  "Raising --cards materializes new cards at the first status. Lowering it is refused; retire cards individually instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ChainUpdateOptions{ID: id}
			if cmd.Flags().Changed("leadtime") {
				opts.LeadTimeDays = &leadtime
			}
			if cmd.Flags().Changed("quantity") {
				opts.Quantity = &quantity
			}
			if cmd.Flags().Changed("container") {
				opts.ContainerType = &container
			}
			if cmd.Flags().Changed("cards") {
				opts.ActiveKanbans = &cards
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				kc, err := a.Engine.UpdateKanbanChain(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(kc)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban chain id")
	cmd.Flags().Int64Var(&leadtime, "leadtime", 0, "lead time in days")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity per container")
	cmd.Flags().StringVar(&container, "container", "", "container type")
	cmd.Flags().Int64Var(&cards, "cards", 0, "number of circulating cards")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func kanbanChainDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a kanban chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteKanbanChain(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban chain id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- kanbans ---

func kanbanCmd() *cobra.Command {
	k := &cobra.Command{Use: "kanban", Short: "Manage kanban cards"}
	k.AddCommand(kanbanListCmd())
	k.AddCommand(kanbanShowCmd())
	k.AddCommand(kanbanAdvanceCmd())
	k.AddCommand(kanbanRetireCmd())
	k.AddCommand(kanbanHistoryCmd())
	return k
}

func kanbanListCmd() *cobra.Command {
	var chainID int64
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List kanban cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListKanbans(ctx, chainID, activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Chain", "Status", "Qty", "Container", "Updated", "Active"})
				for _, k := range items {
					tw.AppendRow(table.Row{k.ID, k.KanbanChainID, k.StatusCurrent, k.Quantity, k.ContainerType, k.UpdatedAt, k.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&chainID, "chain", 0, "filter by kanban chain id")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "active cards only")
	return cmd
}

func kanbanShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a kanban card",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				k, err := a.Engine.Repo.GetKanban(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(k)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func kanbanAdvanceCmd() *cobra.Command {
	var id int64
	var role string
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance a card to its next status",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				view, err := a.Engine.AdvanceKanban(ctx, id, r, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban id")
	cmd.Flags().StringVar(&role, "role", "", "acting role (supplier or customer)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func kanbanRetireCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "retire",
		Short: "Retire a card from circulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				k, err := a.Engine.RetireKanban(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(k)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func kanbanHistoryCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a card's transition history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.KanbanHistory(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "From", "To", "By", "Actor"})
				for _, h := range items {
					tw.AppendRow(table.Row{h.RecordedAt, h.PreviousStatus, h.NextStatus, h.ActorRole.String(), h.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "kanban id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- dashboards ---

func dashboardCmd() *cobra.Command {
	dash := &cobra.Command{Use: "dashboard", Short: "Per-account card boards"}
	dash.AddCommand(dashboardSideCmd("customer"))
	dash.AddCommand(dashboardSideCmd("supplier"))
	return dash
}

func dashboardSideCmd(side string) *cobra.Command {
	var accountID int64
	cmd := &cobra.Command{
		Use:   side,
		Short: fmt.Sprintf("Show the %s dashboard for an account", side),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				var groups map[string][]domain.CardView
				var err error
				if side == "customer" {
					groups, err = a.Engine.DashboardForCustomer(ctx, accountID)
				} else {
					groups, err = a.Engine.DashboardForSupplier(ctx, accountID)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"kanbans_by_product": groups})
				}
				for product, cards := range groups {
					fmt.Printf("%s\n", product)
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Kanban", "Status", "Waiting on", "Qty", "Container", "Updated"})
					for _, c := range cards {
						tw.AppendRow(table.Row{c.KanbanID, c.StatusName, c.ActorRole.String(), c.Quantity, c.ContainerType, c.UpdatedAt})
					}
					tw.Render()
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&accountID, "account", 0, "account id")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

// --- api keys ---

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	ak.AddCommand(apikeyCreateCmd())
	ak.AddCommand(apikeyListCmd())
	ak.AddCommand(apikeyDeleteCmd())
	return ak
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		Long:  "Prints the plaintext key once; only its hash is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				plaintext := uuid.New().String()
				key := domain.APIKey{
					ID:      uuid.New().String(),
					ActorID: viper.GetString("actor-id"),
					Name:    name,
					KeyHash: repo.HashAPIKey(plaintext),
				}
				if err := a.Engine.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{
					"id":      key.ID,
					"api_key": plaintext,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.Repo.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor id")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.Repo.DeleteAPIKey(ctx, id)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "key id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default ekanban.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate ekanban.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if !cmd.Flags().Changed("addr") {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") {
					basePath = a.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{
					JWTSecret:              a.Config.Auth.JWTSecret,
					AllowLegacyActorHeader: a.Config.Auth.AllowLegacyActorHeader,
				}
				if secret := os.Getenv("EKANBAN_JWT_SECRET"); secret != "" {
					authCfg.JWTSecret = secret
				}
				handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving e-kanban API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	a, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
