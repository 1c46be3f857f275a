// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command puppet-wechat logs in to WeChat Web and prints the events of the account.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	puppetwechat "github.com/wechaty/puppet-wechat"
	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/config"
	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/store/sqlstore"
	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/util/fingerprint"
	_ "github.com/wechaty/puppet-wechat/util/fingerprint/regions"
	wxLog "github.com/wechaty/puppet-wechat/util/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var replyDing bool
	cmd := &cobra.Command{
		Use:          "puppet-wechat",
		Short:        "Bridge a WeChat account through the web client",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, replyDing)
		},
	}
	flags := cmd.Flags()
	flags.Bool(config.KeyHead, false, "show the browser window")
	flags.Bool(config.KeyStealthless, false, "don't hide the browser automation markers")
	flags.String(config.KeyEndpoint, "", "Chromium executable path or ws:// DevTools URL")
	flags.Bool(config.KeyUOS, false, "log in as the UOS desktop client")
	flags.String(config.KeyDatabase, "puppet-wechat.db", "SQLite database for the session cookies")
	flags.String(config.KeyLogLevel, "INFO", "minimum log level")
	flags.String(config.KeyRegion, "", "region of the generated browser fingerprint ("+strings.Join(fingerprint.ListRegions(), ", ")+")")
	flags.BoolVar(&replyDing, "reply-ding", false, "answer text messages saying ding with dong")
	for _, key := range []string{config.KeyHead, config.KeyStealthless, config.KeyEndpoint, config.KeyUOS, config.KeyDatabase, config.KeyLogLevel, config.KeyRegion} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}
	return cmd
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}).
		Level(parsed).With().Timestamp().Logger()
}

func run(ctx context.Context, v *viper.Viper, replyDing bool) error {
	log := wxLog.Zerolog(newLogger(v.GetString(config.KeyLogLevel)))
	opts, err := config.Load(v, log.Sub("Config"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := sqlstore.New(ctx, "sqlite", sqlstore.SQLiteAddress(opts.DatabasePath), log.Sub("Database"))
	if err != nil {
		return err
	}
	defer container.Close()

	fp, created, err := store.LoadOrCreateFingerprint(ctx, container, store.CookieSlot, func() *store.BrowserFingerprint {
		return fingerprint.Generate(opts.Region)
	})
	if err != nil {
		return err
	} else if created {
		log.Infof("Generated browser fingerprint %s %s (%s-%s)", fp.OS, fp.OSVersion, fp.Language, fp.Country)
	}

	browser := bridge.NewBrowser(bridge.Options{
		Head:        opts.Head,
		Stealthless: opts.Stealthless,
		Endpoint:    opts.Endpoint,
		UOS:         opts.UOS,
		UOSExtSpam:  opts.UOSExtSpam,
		Identity:    fingerprint.Identity(fp),
		Log:         log.Sub("Browser"),
	})
	puppet := puppetwechat.NewPuppet(browser,
		puppetwechat.WithLogger(log.Sub("Puppet")),
		puppetwechat.WithCookieStore(container),
	)
	puppet.AddEventHandler(func(evt any) {
		printEvent(ctx, puppet, log, evt, replyDing)
	})

	if err = puppet.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	<-ctx.Done()
	log.Infof("Shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err = puppet.Stop(stopCtx); err != nil && !errors.Is(err, puppetwechat.ErrNotActive) {
		return err
	}
	return nil
}

func printEvent(ctx context.Context, puppet *puppetwechat.Puppet, log wxLog.Logger, rawEvt any, replyDing bool) {
	switch evt := rawEvt.(type) {
	case *events.Scan:
		log.Infof("Scan %s: %s", evt.Status, evt.QRCode)
	case *events.Login:
		log.Infof("Logged in as %s", evt.ContactID)
	case *events.Logout:
		log.Infof("Logged out of %s (%s)", evt.ContactID, evt.Data)
	case *events.Ready:
		log.Infof("Contacts are loaded")
	case *events.Message:
		go handleMessage(ctx, puppet, log, evt.MessageID, replyDing)
	case *events.Friendship:
		log.Infof("Friendship event %s", evt.FriendshipID)
	case *events.RoomJoin:
		log.Infof("%v joined %s, invited by %s", evt.InviteeIDList, evt.RoomID, evt.InviterID)
	case *events.RoomLeave:
		log.Infof("%v left %s, removed by %s", evt.RemoveeIDList, evt.RoomID, evt.RemoverID)
	case *events.RoomTopic:
		log.Infof("%s renamed %s from %q to %q", evt.ChangerID, evt.RoomID, evt.OldTopic, evt.NewTopic)
	case *events.Error:
		log.Errorf("Puppet error: %v", evt.Err)
	}
}

func handleMessage(ctx context.Context, puppet *puppetwechat.Puppet, log wxLog.Logger, id string, replyDing bool) {
	msg, err := puppet.MessagePayload(ctx, id)
	if err != nil {
		log.Warnf("Failed to get message %s: %v", id, err)
		return
	}
	log.Infof("Message %s from %s in %q: %s", msg.Type, msg.TalkerID, msg.RoomID, msg.Text)
	if !replyDing || msg.Type != types.MessageTypeText || msg.TalkerID == puppet.SelfID() || strings.TrimSpace(msg.Text) != "ding" {
		return
	}
	conversation := msg.RoomID
	if conversation == "" {
		conversation = msg.TalkerID
	}
	if err = puppet.MessageSendText(ctx, conversation, "dong"); err != nil {
		log.Warnf("Failed to reply to %s: %v", id, err)
	}
}
