package main

import (
	"github.com/spf13/cobra"
)

// runOptions holds the root command flags.
type runOptions struct {
	videoID      string
	projectID    string
	listProjects bool
	replace      bool
	toggle       string
	service      string
	password     string
	concurrency  int
	debug        bool
	verbose      bool
}

func newRootCommand() *cobra.Command {
	cmd, _ := newRootCommandWithContext()
	return cmd
}

// newRootCommandWithContext also returns the shared command state so main can
// log through the configured logger after Execute returns.
func newRootCommandWithContext() (*cobra.Command, *commandContext) {
	var configFlag string
	opts := &runOptions{}

	ctx := newCommandContext(&configFlag, opts)

	rootCmd := &cobra.Command{
		Use:   "autocap",
		Short: "Generate and upload captions for Wistia videos",
		Example: "  autocap --video abc123\n" +
			"  autocap --project p1x2y3 --replace --concurrency 4\n" +
			"  autocap --list-projects\n" +
			"  autocap --toggle-captions off --video abc123",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runRoot(cmd)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.videoID, "video", "v", "", "Caption a single video by hashed id")
	flags.StringVarP(&opts.projectID, "project", "p", "", "Caption every video of a project by hashed id")
	flags.BoolVarP(&opts.listProjects, "list-projects", "l", false, "List projects and exit")
	flags.BoolVarP(&opts.replace, "replace", "r", false, "Replace an existing caption track")
	flags.StringVar(&opts.toggle, "toggle-captions", "", "Show captions by default (on) or remove them from the player (off) for --video or --project")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Videos processed at once in a project run (default from config, 10)")
	rootCmd.MarkFlagsMutuallyExclusive("video", "project", "list-projects")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	persistent.StringVar(&opts.service, "service", "", "Transcription service: cloud_asr, local_tool or openai")
	persistent.StringVar(&opts.password, "password", "", "Wistia API password (else WISTIA_API_PASSWORD)")
	persistent.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	persistent.BoolVar(&opts.verbose, "verbose", false, "Enable info logging")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newPreflightCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd, ctx
}
