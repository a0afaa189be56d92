// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bureau-foundation/burrow/lib/backingstore"
	"github.com/bureau-foundation/burrow/lib/config"
	"github.com/bureau-foundation/burrow/lib/fusechan"
	"github.com/bureau-foundation/burrow/lib/object"
	"github.com/bureau-foundation/burrow/lib/version"
	"github.com/bureau-foundation/burrow/lib/vfs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		showVersion bool
		configPath  string
		deviceFD    int
		takeover    bool
		rootHash    string
		remoteDir   string
	)
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&configPath, "config", "", "path to burrow.yaml (overrides BURROW_CONFIG)")
	flag.IntVar(&deviceFD, "device-fd", -1, "open FUSE device descriptor inherited from the mount helper (required)")
	flag.BoolVar(&takeover, "takeover", false, "resume the kernel session from a predecessor's snapshot")
	flag.StringVar(&rootHash, "root", "", "hex tree hash of the filesystem root (required)")
	flag.StringVar(&remoteDir, "remote-dir", "", "exported object directory serving as the remote store (required)")
	flag.Parse()

	if showVersion {
		fmt.Printf("burrow-daemon %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if deviceFD < 0 {
		return fmt.Errorf("--device-fd is required")
	}
	if rootHash == "" {
		return fmt.Errorf("--root is required")
	}
	root, err := object.ParseHash(rootHash)
	if err != nil {
		return fmt.Errorf("--root: %w", err)
	}
	if remoteDir == "" {
		return fmt.Errorf("--remote-dir is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Paths.State, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	local, err := backingstore.OpenSQLiteStore(filepath.Join(cfg.Paths.State, "localstore.db"), logger)
	if err != nil {
		return err
	}
	defer local.Close()

	datapack, err := backingstore.NewDatapack(cfg.Paths.Datapack)
	if err != nil {
		return err
	}
	defer datapack.Close()

	remote, err := backingstore.NewDirRemote(remoteDir)
	if err != nil {
		return err
	}

	compression := backingstore.CompressionLZ4
	if cfg.Import.Compression == "zstd" {
		compression = backingstore.CompressionZstd
	}
	store, err := backingstore.NewQueuedStore(backingstore.Options{
		Local:       local,
		Datapack:    datapack,
		Remote:      remote,
		Workers:     cfg.Import.Workers,
		BatchSize:   cfg.Import.BatchSize,
		Compression: compression,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	filesystem, err := vfs.New(vfs.Options{
		Store:  store,
		Root:   root,
		UID:    uint32(os.Getuid()),
		GID:    uint32(os.Getgid()),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	channel, err := fusechan.NewChannel(fusechan.Options{
		DeviceFD:   deviceFD,
		MountPath:  cfg.Channel.MountPath,
		Workers:    cfg.Channel.Workers,
		Dispatcher: filesystem,
		MaxWrite:   cfg.Channel.MaxWrite,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer channel.Close()

	var initResult <-chan error
	if takeover {
		snapshot, err := fusechan.LoadTakeoverData(cfg.Paths.Takeover)
		if err != nil {
			return fmt.Errorf("loading takeover snapshot: %w", err)
		}
		initResult = channel.InitializeFromTakeover(snapshot.ConnInfo())
	} else {
		initResult = channel.Initialize()
	}

	select {
	case err := <-initResult:
		if err != nil {
			return fmt.Errorf("initializing kernel session: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("interrupted before the kernel session initialized")
	}
	logger.Info("serving", "mount", cfg.Channel.MountPath, "root", root.Short())

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested, draining session")
		channel.RequestSessionExit()
		if err := channel.Close(); err != nil {
			logger.Warn("closing channel", "error", err)
		}
		<-channel.SessionComplete()
	case <-channel.SessionComplete():
		logger.Info("kernel session ended")
	}
	return nil
}
