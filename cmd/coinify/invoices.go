package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samvad-hq/coinify-go/internal/app"
	"github.com/samvad-hq/coinify-go/pkg/coinify"
	"github.com/spf13/cobra"
)

func newInvoicesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice"},
		Short:   "Invoice operations",
	}
	cmd.AddCommand(
		newListCmd(e),
		newGetCmd(e),
		newCreateCmd(e),
		newUpdateCmd(e),
		newWatchCmd(e),
	)
	return cmd
}

// emit prints the envelope and fails the command when it reports failure.
func emit(cmd *cobra.Command, e *env, resp *coinify.Response, err error) error {
	if err != nil {
		return err
	}
	if err := app.Render(cmd.OutOrStdout(), e.cfg.OutputFormat, resp); err != nil {
		return err
	}
	return app.ResultError(resp)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid invoice id %q", arg)
	}
	return id, nil
}

func parseCustom(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var custom map[string]any
	if err := json.Unmarshal([]byte(raw), &custom); err != nil {
		return nil, fmt.Errorf("--custom-json must be a JSON object: %w", err)
	}
	return custom, nil
}

// optionalFlag returns a pointer to the flag value only if the user set it.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func newListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.NewCoinifyClient(e.cfg, e.log)
			if err != nil {
				return err
			}
			resp, err := client.InvoicesList(cmd.Context())
			return emit(cmd, e, resp, err)
		},
	}
}

func newGetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Get a specific invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := app.NewCoinifyClient(e.cfg, e.log)
			if err != nil {
				return err
			}
			resp, err := client.InvoiceGet(cmd.Context(), id)
			return emit(cmd, e, resp, err)
		},
	}
}

func newCreateCmd(e *env) *cobra.Command {
	var (
		amount     float64
		currency   string
		customJSON string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			custom, err := parseCustom(customJSON)
			if err != nil {
				return err
			}
			params := coinify.InvoiceCreateParams{
				Amount:        amount,
				Currency:      currency,
				Description:   optionalFlag(cmd, "description"),
				Custom:        custom,
				CallbackURL:   optionalFlag(cmd, "callback-url"),
				CallbackEmail: optionalFlag(cmd, "callback-email"),
				ReturnURL:     optionalFlag(cmd, "return-url"),
				CancelURL:     optionalFlag(cmd, "cancel-url"),
			}
			if file != "" {
				f, err := app.LoadInvoiceFile(file)
				if err != nil {
					return err
				}
				params = f.CreateParams(params)
			}
			if params.PluginName == "" {
				params.PluginName = e.cfg.AppName
			}
			if params.PluginVersion == "" {
				params.PluginVersion = app.Version
			}
			if params.Amount <= 0 {
				return fmt.Errorf("--amount must be positive")
			}

			client, err := app.NewCoinifyClient(e.cfg, e.log)
			if err != nil {
				return err
			}
			resp, err := client.InvoiceCreate(cmd.Context(), params)
			return emit(cmd, e, resp, err)
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "fiat price of the invoice")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code of amount")
	cmd.Flags().String("description", "", "custom text for the invoice")
	cmd.Flags().StringVar(&customJSON, "custom-json", "", "custom data as a JSON object")
	cmd.Flags().String("callback-url", "", "URL called when the invoice state changes")
	cmd.Flags().String("callback-email", "", "email notified when the invoice state changes")
	cmd.Flags().String("return-url", "", "URL the customer returns to after payment")
	cmd.Flags().String("cancel-url", "", "URL the customer returns to after cancelling")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with invoice parameters")
	return cmd
}

func newUpdateCmd(e *env) *cobra.Command {
	var customJSON, file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update the description and custom data of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			custom, err := parseCustom(customJSON)
			if err != nil {
				return err
			}
			params := coinify.InvoiceUpdateParams{
				Description: optionalFlag(cmd, "description"),
				Custom:      custom,
			}
			if file != "" {
				f, err := app.LoadInvoiceFile(file)
				if err != nil {
					return err
				}
				params = f.UpdateParams(params)
			}

			client, err := app.NewCoinifyClient(e.cfg, e.log)
			if err != nil {
				return err
			}
			resp, err := client.InvoiceUpdate(cmd.Context(), id, params)
			return emit(cmd, e, resp, err)
		},
	}
	cmd.Flags().String("description", "", "custom text for the invoice")
	cmd.Flags().StringVar(&customJSON, "custom-json", "", "custom data as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with description/custom")
	return cmd
}

func newWatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll invoices and publish new or changed ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e.log.InfoObj("watcher starting", "config", e.cfg.Redacted())
			w, err := app.NewWatcher(cmd.Context(), e.cfg, e.log)
			if err != nil {
				e.log.ErrorObj("failed to initialize watcher", "error", err.Error())
				return err
			}
			if err := w.Run(cmd.Context()); err != nil {
				return fmt.Errorf("watcher run: %w", err)
			}
			return nil
		},
	}
}
