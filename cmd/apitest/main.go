// apitest exercises the REST surface without opening a push connection:
// it fetches the wheel configuration and the credit state and prints both.
// Usage: go run ./cmd/apitest --config configs/session.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/spinlabs/wheel-client/internal/api"
	"github.com/spinlabs/wheel-client/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/session.example.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	if token := os.Getenv("WHEEL_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if cfg.API.Token == "" {
		fmt.Fprintln(os.Stderr, "no session token; set WHEEL_TOKEN or api.token")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := api.NewClient(
		cfg.API.RestURL,
		cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	wheelCfg, err := client.GetWheelConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch wheel config: %v\n", err)
		os.Exit(1)
	}

	state, err := client.GetState(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch credit state: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("wheel config:")
	printJSON(wheelCfg)
	fmt.Println("credit state:")
	printJSON(state)

	fmt.Printf("free spins remaining:  %d\n", state.FreeSpinsRemaining())
	fmt.Printf("extra spins remaining: %d\n", state.ExtraSpinsRemaining())
	fmt.Printf("spin tickets:          %d\n", state.SpinTickets)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
