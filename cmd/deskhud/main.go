package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"deskhud/internal/api"
	"deskhud/internal/collector"
	"deskhud/internal/mqtt"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskhud",
		Short: "DeskHUD e-paper panel server",
		Long:  "Renders the calendar, weather, quote and progress panels as 1-bit bitmaps for the DeskHUD display",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(weatherCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the panel server",
		Long:  "Start the API server, the background collector and the MQTT publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{withStorage: true})
			if err != nil {
				return err
			}
			defer a.close()
			cfg := a.cfg

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
				Logger:      a.log,
			})
			collCfg := collector.CollectorConfig{
				Assembler: a.assembler,
				Interval:  cfg.Collector.Interval,
				Retention: cfg.Collector.Retention,
				Enabled:   cfg.Collector.Enabled,
				Logger:    a.log,
			}
			if err != nil {
				a.log.Warn("MQTT connection failed", "error", err)
			} else {
				collCfg.Publisher = publisher
				if cfg.MQTT.Enabled {
					if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
						a.log.Warn("MQTT discovery failed", "error", err)
					}
				}
			}
			if a.db != nil {
				collCfg.Cleaner = a.db
			}
			coll := collector.NewCollector(collCfg)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return coll.Start(gctx) })
			g.Go(func() error {
				<-gctx.Done()
				return nil
			})

			if cfg.Server.Enabled {
				srvCfg := api.ServerConfig{
					Port:      cfg.Server.Port,
					Frames:    a.assembler,
					Collector: coll,
					Logger:    a.log,
				}
				if publisher != nil && cfg.MQTT.Enabled {
					srvCfg.Broker = publisher
				}
				server := api.NewServer(srvCfg)
				g.Go(func() error {
					if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("API server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					return server.Stop(shutdownCtx)
				})
			}

			a.log.Info("DeskHUD started, press Ctrl+C to stop")
			err = g.Wait()
			a.log.Info("shutting down")
			coll.Stop()
			return err
		},
	}
}

func renderCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every widget once",
		Long:  "Assemble one frame, write each widget as PNG and print the packed sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{snapshotDir: outDir})
			if err != nil {
				return err
			}
			defer a.close()

			f, err := a.assembler.Assemble(ctx, a.now())
			if err != nil {
				return fmt.Errorf("failed to assemble frame: %w", err)
			}

			names := make([]string, 0, len(f.Packed))
			for name := range f.Packed {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("Frame version %d\n", f.Version)
			for _, name := range names {
				p := f.Packed[name]
				fmt.Printf("  %-9s %3dx%-3d %6d bytes  %s\n", name, p.Width, p.Height, len(p.Payload),
					filepath.Join(outDir, name+".png"))
			}
			if len(f.Degraded) > 0 {
				fmt.Printf("Fallbacks used: %v\n", f.Degraded)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "./preview", "directory for the PNG previews")
	return cmd
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a signed weather API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.weather.Token()
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Println(token)
			return nil
		},
	}
}

func weatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Fetch and print the current weather, air quality and forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			loc := a.cfg.Weather.Location
			out := map[string]any{"location": loc}
			if now, err := a.weather.CurrentWeather(ctx, loc); err != nil {
				out["now_error"] = err.Error()
			} else {
				out["now"] = now
			}
			if air, err := a.weather.AirQuality(ctx, loc); err != nil {
				out["air_error"] = err.Error()
			} else {
				out["air"] = air
			}
			if days, err := a.weather.Forecast(ctx, loc, a.cfg.Weather.Horizon); err != nil {
				out["forecast_error"] = err.Error()
			} else {
				out["forecast"] = days
			}

			output, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}
}
