package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hopper1357/VTT/internal/config"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/infrastructure/storage"
	"github.com/hopper1357/VTT/internal/version"
	"github.com/hopper1357/VTT/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}
	logger.Silence()

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	if cmd == "buildid" {
		if len(args) < 1 {
			return fmt.Errorf("usage: saveutil buildid <YYYY-MM-DD>")
		}
		id, err := version.ParseBuildID(args[0])
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	}

	// Хранилище берется из того же конфига, что и у сервера
	cfg, err := config.Load(os.Getenv("VTT_CONFIG"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("storage driver is %q, nothing to manage", cfg.Storage.Driver)
	}
	defer store.Close()

	switch cmd {
	case "list":
		saves, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(saves) == 0 {
			fmt.Println("No saves.")
		}
		for _, s := range saves {
			fmt.Printf("%-24s %s\n", s.Name, s.SavedAt.Format(time.RFC3339))
		}
	case "export":
		if len(args) < 1 {
			return fmt.Errorf("usage: saveutil export <name>")
		}
		snap, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: saveutil import <name> <file.json>")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var snap domain.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decode %s: %w", args[1], err)
		}
		// Проверяем снапшот тем же путем, что и load на сервере
		if err := domain.NewState("").Restore(snap); err != nil {
			return fmt.Errorf("invalid snapshot: %w", err)
		}
		if err := store.Save(ctx, args[0], snap); err != nil {
			return err
		}
		fmt.Printf("Imported %s: %d maps, %d entities\n", args[0], len(snap.Maps), len(snap.Entities))
	default:
		printHelp()
	}
	return nil
}

func printHelp() {
	fmt.Println(`Save Utility - управление сохранениями сессии
Storage is taken from the server config (VTT_CONFIG file + VTT_* env).
Commands:
  list                   - список сохранений
  export <name>          - вывести сохранение в JSON
  import <name> <file>   - записать JSON-снапшот как сохранение
  buildid <YYYY-MM-DD>   - номер сборки для даты`)
}
