package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"yakstack/internal/notification"
	"yakstack/internal/reminder"
)

func newRemindCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remind INDEX DELAY",
		Short: "Schedule a desktop reminder for a task",
		Long:  "Schedule a desktop reminder for the INDEXth task of the current stack. DELAY combines hours, minutes and seconds, e.g. 1h30m, 45s, 2m10s.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var opts []reminder.SchedulerOption
			if cfg.Spawner != nil {
				opts = append(opts, reminder.WithSpawner(cfg.Spawner))
			}
			sched := reminder.NewScheduler(st, opts...)
			_, err = sched.Schedule(context.Background(), index, args[1])
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newFireReminderCmd is the internal worker entry point: the scheduler
// re-invokes the program with this subcommand in a detached process.
func newFireReminderCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:    reminder.FireCommand + " ID",
		Hidden: true,
		Short:  "Wait out a reminder's delay and display it (internal)",
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}

			notifCfg := &notification.Config{
				OS: notification.OSConfig{
					Enabled: fileCfg.Notifications.OSNotificationEnabled(),
				},
				Log: notification.LogConfig{
					Enabled:   fileCfg.Notifications.LogNotification,
					Path:      fileCfg.Notifications.LogPath,
					MaxSizeMB: fileCfg.Notifications.LogMaxSizeMB,
				},
			}
			if cfg.NotificationLogPath != "" {
				notifCfg.Log.Enabled = true
				notifCfg.Log.Path = cfg.NotificationLogPath
			}
			var notifOpts []notification.Option
			if cfg.NotificationExecutor != nil {
				notifOpts = append(notifOpts, notification.WithCommandExecutor(cfg.NotificationExecutor))
			}
			notifier := notification.NewManager(notifCfg, notifOpts...)
			defer func() { _ = notifier.Close() }()

			var opts []reminder.WorkerOption
			if cfg.WorkerSleep != nil {
				opts = append(opts, reminder.WithSleep(cfg.WorkerSleep))
			}
			worker := reminder.NewWorker(dbPath(cfg, fileCfg), notifier, opts...)
			return worker.Run(context.Background(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
