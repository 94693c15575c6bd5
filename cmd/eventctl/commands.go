package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"ms-events/internal/ai"
	"ms-events/internal/blob"
	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type runFunc = func(cmd *cobra.Command, a *app, args []string) error

type appWrapper func(runFunc) func(*cobra.Command, []string) error

func newStatusCmd(withApp appWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mode, events and settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			s, err := a.console.State(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			mode := color.New(color.FgGreen).Sprint(s.Mode)
			if s.Mode == models.ModeVisitor {
				mode = color.New(color.FgYellow).Sprint(s.Mode)
			}
			fmt.Fprintf(out, "Mode: %s\n", mode)
			if s.LastError != "" {
				fmt.Fprintf(out, "Load error: %s\n", color.RedString(s.LastError))
			}
			fmt.Fprintf(out, "Payments: %s  Brand: %s  Assets: %d\n\n", s.Settings.PaymentProvider(), s.Settings.BrandColor, len(s.Assets))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tDATE\tPRICE\tBOOKED\tPRICE ID")
			for _, ev := range s.Events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%d/%d\t%s\n",
					ev.ID, ev.Title, ev.Status, ev.Date, ev.Price, ev.Bookings, ev.Capacity, ev.StripePriceID)
			}
			return tw.Flush()
		}),
	}
}

func newEventCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Create, update or remove events",
	}

	var cover string
	put := &cobra.Command{
		Use:   "put <file.json>",
		Short: "Create or replace an event from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ev, err := readEvent(args[0])
			if err != nil {
				return err
			}
			if cover != "" {
				if ev.Image, err = dataURIFromFile(cover); err != nil {
					return err
				}
			}
			saved, err := a.console.SaveEvent(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved event %s\n", saved.ID)
			return nil
		}),
	}
	put.Flags().StringVar(&cover, "cover", "", "image file to use as cover, uploaded on the next publish")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an event",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.console.DeleteEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed event %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(put, rm)
	return cmd
}

func newAssetCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage the media library",
	}

	var kind string
	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Add a file to the media library",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])
			contentType := contentTypeOf(name)
			k := models.KindFromContentType(contentType)
			if kind != "" {
				k = models.AssetKind(kind)
			}
			asset, err := a.console.AddAssetOfKind(cmd.Context(), k, name, contentType, data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %s %s as %s\n", asset.Kind, asset.Name, asset.ID)
			fmt.Fprintf(out, "Attach it to an event with \"assets\": [{\"id\": %q}]\n", asset.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&kind, "kind", "", "image, video, audio or document (default from file extension)")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an asset from the media library",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			return a.console.DeleteAsset(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(add, rm)
	return cmd
}

type settingsFlags struct {
	brandColor   string
	provider     string
	apiKey       string
	currency     string
	accountEmail string
	wallet       string
}

func (f settingsFlags) paymentConfig() (models.PaymentConfig, error) {
	switch models.PaymentProvider(f.provider) {
	case models.ProviderStripe:
		return models.StripeConfig{PublishableKey: f.apiKey, Currency: f.currency}, nil
	case models.ProviderSquare:
		return models.SquareConfig{ApplicationID: f.apiKey, Currency: f.currency}, nil
	case models.ProviderPayPal:
		return models.PayPalConfig{AccountEmail: f.accountEmail, Currency: f.currency}, nil
	case models.ProviderVenmo:
		return models.VenmoConfig{Handle: f.accountEmail}, nil
	case models.ProviderCrypto:
		return models.CryptoConfig{WalletAddress: f.wallet, Currency: f.currency}, nil
	case models.ProviderNone:
		return models.NoneConfig{}, nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", f.provider)
}

func newSettingsCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage site settings",
	}

	var f settingsFlags
	set := &cobra.Command{
		Use:   "set",
		Short: "Update branding and payment settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			s, err := a.console.State(cmd.Context())
			if err != nil {
				return err
			}
			settings := s.Settings
			if cmd.Flags().Changed("brand-color") {
				settings.BrandColor = f.brandColor
			}
			if cmd.Flags().Changed("provider") {
				cfg, err := f.paymentConfig()
				if err != nil {
					return err
				}
				settings.PaymentConfig = cfg
			}
			if err := a.console.SaveSettings(cmd.Context(), settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved settings (payments: %s)\n", settings.PaymentProvider())
			return nil
		}),
	}
	set.Flags().StringVar(&f.brandColor, "brand-color", "", "brand color, e.g. #4f46e5")
	set.Flags().StringVar(&f.provider, "provider", "", "stripe, square, paypal, venmo, crypto or none")
	set.Flags().StringVar(&f.apiKey, "api-key", "", "publishable key (stripe, square)")
	set.Flags().StringVar(&f.currency, "currency", "", "ISO currency code")
	set.Flags().StringVar(&f.accountEmail, "account-email", "", "account email (paypal) or handle (venmo)")
	set.Flags().StringVar(&f.wallet, "wallet", "", "wallet address (crypto)")

	cmd.AddCommand(set)
	return cmd
}

func newPublishCmd(withApp appWrapper) *cobra.Command {
	var pendingFile string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload media and publish the manifest",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			var pending *models.Event
			if pendingFile != "" {
				ev, err := readEvent(pendingFile)
				if err != nil {
					return err
				}
				pending = &ev
			}
			res, err := a.console.Publish(cmd.Context(), pending)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Published %d events, uploaded %d files\n", len(res.Events), res.Uploaded)
			for _, ref := range res.Unresolved {
				fmt.Fprintln(out, color.YellowString("warning: unresolved media reference %s", ref))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&pendingFile, "pending", "", "event JSON to save and include before publishing")
	return cmd
}

func newExportCmd(withApp appWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file|->",
		Short: "Write a backup of events, assets and settings",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if args[0] == "-" {
				return a.console.ExportBackup(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := a.console.ExportBackup(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}),
	}
}

func newRestoreCmd(withApp appWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace events and settings with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := a.console.RestoreBackup(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored backup from %s\n", args[0])
			return nil
		}),
	}
}

func newAICmd(withApp appWrapper) *cobra.Command {
	var eventID string
	var req models.GenerateRequest
	cmd := &cobra.Command{
		Use:       "ai <description|agenda|tags>",
		Short:     "Draft event content with the AI helpers",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{ai.KindDescription, ai.KindAgenda, ai.KindTags},
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if eventID != "" {
				s, err := a.console.State(cmd.Context())
				if err != nil {
					return err
				}
				for _, ev := range s.Events {
					if ev.ID == eventID {
						req = models.GenerateRequest{Title: ev.Title, Description: ev.Description, Date: ev.Date, Location: ev.Location, Tags: ev.Tags}
					}
				}
				if req.Title == "" {
					return fmt.Errorf("event %s not found", eventID)
				}
			}

			var out json.RawMessage
			if err := a.server.Generate(cmd.Context(), args[0], req, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}),
	}
	cmd.Flags().StringVar(&eventID, "event", "", "use an existing event as the prompt")
	cmd.Flags().StringVar(&req.Title, "title", "", "event title")
	cmd.Flags().StringVar(&req.Description, "notes", "", "notes for the generator")
	cmd.Flags().StringVar(&req.Date, "date", "", "event date")
	cmd.Flags().StringVar(&req.Location, "location", "", "event location")
	return cmd
}

func newWatchCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow manifest publishes on Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.ManifestPublished, group, log)
			defer consumer.Close()
			out := cmd.OutOrStdout()
			return consumer.Start(cmd.Context(), func(ev models.ManifestPublishedEvent) {
				fmt.Fprintf(out, "%s  %d events  %s\n", ev.LastUpdated, len(ev.EventIDs), strings.Join(ev.EventIDs, ","))
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "eventctl-watch", "Kafka consumer group")
	return cmd
}

func readEvent(path string) (models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Event{}, err
	}
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Event{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ev, nil
}

func dataURIFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return blob.EncodeDataURI(data, contentTypeOf(path)), nil
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return strings.SplitN(ct, ";", 2)[0]
	}
	return "application/octet-stream"
}
