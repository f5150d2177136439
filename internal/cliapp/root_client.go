package cliapp

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/swwwgo/swwwgo/internal/imagepipe"
	"github.com/swwwgo/swwwgo/internal/ipc"
)

// Exit codes per spec.md §6.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitProtocolMismatch = 2
	ExitNoDaemon         = 3
)

// dialOrExit connects to namespace's daemon, exiting with ExitNoDaemon
// (spec.md §6: "no daemon running") when the socket can't be reached at
// all — the one case a raw dial error can distinguish from a request
// failure the daemon itself reported.
func dialOrExit(namespace string) *ipc.Client {
	c, err := ipc.Dial(namespace)
	if err != nil {
		log.Errorf("swww: %v", err)
		os.Exit(ExitNoDaemon)
	}
	return c
}

// NewClientRootCmd builds the `swww` client's cobra command tree, grounded
// on matjam-smoothpaper/internal/cli/root.go's rootCmd plus
// internal/cli/cmd/*.go's one-command-per-file layout.
func NewClientRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "swww",
		Short: "Animated Wayland wallpaper control client",
		Long: `swww talks to a running swww-daemon over its per-namespace Unix
socket to query outputs and set, clear, or restore their wallpaper.`,
	}
	RegisterConfigFlag(root)
	cobra.OnInitialize(InitConfig)

	root.Flags().Bool("version", false, "print version and exit")
	root.Run = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			PrintVersion("swww", version)
			return
		}
		_ = cmd.Help()
	}

	root.AddCommand(
		newQueryCmd(),
		newImgCmd(),
		newClearCmd(),
		newRestoreCmd(),
		newKillCmd(),
		newClearCacheCmd(),
		newGenManCmd(root),
	)
	return root
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List outputs and what each is currently displaying",
		Run: func(cmd *cobra.Command, args []string) {
			outputs, err := ResolveOutputs(cmd)
			if err != nil {
				log.Fatalf("swww: %v", err)
			}
			c := dialOrExit(ResolveNamespace(cmd))
			defer c.Close()

			info, err := c.Query(outputs)
			if err != nil {
				log.Errorf("swww: query: %v", err)
				os.Exit(ExitFailure)
			}
			PrintQuery(info)
		},
	}
	RegisterOutputFlags(cmd)
	return cmd
}

func newImgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "img <path|->",
		Short: "Set the wallpaper on the matched outputs",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			outputs, err := ResolveOutputs(cmd)
			if err != nil {
				log.Fatalf("swww: %v", err)
			}

			fit, _ := cmd.Flags().GetString("resize")
			if _, err := imagepipe.ParseFitMode(fit); err != nil {
				log.Fatalf("swww: %v", err)
			}
			filter, _ := cmd.Flags().GetString("filter")
			if _, err := imagepipe.ParseFilter(filter); err != nil {
				log.Fatalf("swww: %v", err)
			}
			fillColor, _ := cmd.Flags().GetString("fill-color")

			desc, err := ResolveTransition(cmd)
			if err != nil {
				log.Fatalf("swww: %v", err)
			}

			path := args[0]
			req := ipc.ImgRequest{
				Outputs:    outputs,
				Fit:        fit,
				FilterName: filter,
				FillColor:  fillColor,
				Transition: ipc.ParamsFromDescriptor(desc),
			}

			c := dialOrExit(ResolveNamespace(cmd))
			defer c.Close()

			stdinFD := -1
			if path == "-" {
				req.Path = ""
				fd, hash, cleanup, err := stageStdinImage()
				if err != nil {
					log.Errorf("swww: reading stdin: %v", err)
					os.Exit(ExitFailure)
				}
				defer cleanup()
				stdinFD = fd
				req.ContentHash = hash
			} else {
				req.Path = path
				req.ContentHash = hashPath(path)
			}

			if err := c.Img(req, stdinFD); err != nil {
				log.Errorf("swww: img: %v", err)
				os.Exit(ExitFailure)
			}
		},
	}
	RegisterOutputFlags(cmd)
	RegisterImgFlags(cmd)
	return cmd
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <rrggbb>",
		Short: "Fill the matched outputs with a solid color",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			outputs, err := ResolveOutputs(cmd)
			if err != nil {
				log.Fatalf("swww: %v", err)
			}
			if _, err := imagepipe.ParseColor(args[0]); err != nil {
				log.Fatalf("swww: %v", err)
			}

			c := dialOrExit(ResolveNamespace(cmd))
			defer c.Close()

			if err := c.Clear(ipc.ClearRequest{Outputs: outputs, Color: args[0]}); err != nil {
				log.Errorf("swww: clear: %v", err)
				os.Exit(ExitFailure)
			}
		},
	}
	RegisterOutputFlags(cmd)
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Reinstate the last content shown on the matched outputs",
		Run: func(cmd *cobra.Command, args []string) {
			outputs, err := ResolveOutputs(cmd)
			if err != nil {
				log.Fatalf("swww: %v", err)
			}
			c := dialOrExit(ResolveNamespace(cmd))
			defer c.Close()

			if err := c.Restore(ipc.RestoreRequest{Outputs: outputs}); err != nil {
				log.Errorf("swww: restore: %v", err)
				os.Exit(ExitFailure)
			}
		},
	}
	RegisterOutputFlags(cmd)
	return cmd
}

func newKillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Shut down the daemon serving this namespace",
		Run: func(cmd *cobra.Command, args []string) {
			c := dialOrExit(ResolveNamespace(cmd))
			defer c.Close()

			if err := c.Kill(); err != nil {
				log.Errorf("swww: kill: %v", err)
				os.Exit(ExitFailure)
			}
		},
	}
	cmd.Flags().StringP("namespace", "n", "", "daemon namespace")
	return cmd
}

func newClearCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove the daemon's on-disk animation cache",
		Run: func(cmd *cobra.Command, args []string) {
			c := dialOrExit(ResolveNamespace(cmd))
			defer c.Close()

			if err := c.ClearCache(); err != nil {
				log.Errorf("swww: clear-cache: %v", err)
				os.Exit(ExitFailure)
			}
		},
	}
	cmd.Flags().StringP("namespace", "n", "", "daemon namespace")
	return cmd
}

func newGenManCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "genman [output-dir]",
		Short: "Generate man pages for the swww CLI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header := &doc.GenManHeader{Title: "SWWW", Section: "1"}
			return doc.GenManTree(root, header, args[0])
		},
	}
}
