package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	_ "time/tzdata" // watch-build prints times in America/New_York

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/rhcephpkg/rhcephpkg"
	"github.com/rhcephpkg/rhcephpkg/commands"
	"github.com/rhcephpkg/rhcephpkg/config"
	"github.com/rhcephpkg/rhcephpkg/runner"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, rhcephpkg.ErrNoChanges):
		fmt.Println("No new patches, quitting.")
	default:
		log.Error(err)
	}
	return 1
}

// onUsageError shows the command's help and exits 2.
func onUsageError(c *cli.Context, err error, _ bool) error {
	cli.ShowSubcommandHelp(c)
	return cli.Exit(err.Error(), 2)
}

func usage(c *cli.Context, msg string) error {
	return onUsageError(c, errors.New(msg), true)
}

func newApp() *cli.App {
	var env *commands.Env
	setup := func(c *cli.Context) error {
		if c.Bool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		cfg, err := config.Load(c.Context)
		if err != nil {
			return err
		}
		env = commands.NewEnv(rhcephpkg.Unwrap(os.Getwd()), runner.NewExec(), cfg)
		return nil
	}
	noArgs := func(run func(ctx context.Context) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			if c.NArg() != 0 {
				return usage(c, "too many arguments")
			}
			return run(c.Context)
		}
	}
	oneArg := func(name string, run func(ctx context.Context, arg string) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usage(c, "expected one "+name)
			}
			return run(c.Context, c.Args().First())
		}
	}

	cmds := []*cli.Command{
		{
			Name:      "build",
			Usage:     "Build a package in Jenkins",
			ArgsUsage: " ",
			Action: noArgs(func(ctx context.Context) error {
				return (&commands.Build{Env: env}).Run(ctx)
			}),
		},
		{
			Name:      "checkout-from-patches",
			Usage:     "Choose a Debian branch based on a RHEL -patches branch",
			ArgsUsage: "<branch>",
			Action: oneArg("branch", func(ctx context.Context, branch string) error {
				return (&commands.CheckoutFromPatches{Env: env}).Run(ctx, branch)
			}),
		},
		{
			Name:      "clone",
			Usage:     "Clone a dist-git repository",
			ArgsUsage: "<package>",
			Action: oneArg("package", func(ctx context.Context, pkg string) error {
				return (&commands.Clone{Env: env}).Run(ctx, pkg)
			}),
		},
		{
			Name:      "download",
			Usage:     "Download a build from chacra",
			ArgsUsage: "<package>_<version>",
			Action: oneArg("build", func(ctx context.Context, build string) error {
				return (&commands.Download{Env: env}).Run(ctx, build)
			}),
		},
		{
			Name:      "gitbz",
			Usage:     "Verify each RHBZ in the last Git commit message",
			ArgsUsage: " ",
			Action: noArgs(func(ctx context.Context) error {
				return (&commands.Gitbz{Env: env}).Run(ctx)
			}),
		},
		{
			Name:      "hello",
			Usage:     "Test authentication to Jenkins",
			ArgsUsage: " ",
			Action: noArgs(func(ctx context.Context) error {
				return (&commands.Hello{Env: env}).Run(ctx)
			}),
		},
		{
			Name:      "list-builds",
			Usage:     "List chacra builds for a package",
			ArgsUsage: "<package>",
			Action: oneArg("package", func(ctx context.Context, pkg string) error {
				return (&commands.ListBuilds{Env: env}).Run(ctx, pkg)
			}),
		},
		{
			Name:      "localbuild",
			Usage:     "Build a package on the local system",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dist", Usage: "pbuilder distribution, eg. xenial"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 0 {
					return usage(c, "too many arguments")
				}
				return (&commands.Localbuild{Env: env, Dist: c.String("dist")}).Run(c.Context)
			},
		},
		{
			Name:      "merge-patches",
			Usage:     "Merge patches from the RHEL -patches branch to the patch-queue branch",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "discard local patch-queue commits"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 0 {
					return usage(c, "too many arguments")
				}
				return (&commands.MergePatches{Env: env, Force: c.Bool("force")}).Run(c.Context)
			},
		},
		{
			Name:      "new-version",
			Usage:     "Import a new upstream version with gbp import-orig",
			ArgsUsage: "[tarball]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "bug", Aliases: []string{"B"}, Usage: `bug references for the changelog, eg. "rhbz#123"`},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() > 1 {
					return usage(c, "expected at most one tarball")
				}
				nv := &commands.NewVersion{Env: env, Tarball: c.Args().First(), Bugs: c.String("bug")}
				return nv.Run(c.Context)
			},
		},
		{
			Name:      "patch",
			Usage:     "Apply patches from the patch-queue branch",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "nobz", Usage: "allow patches that do not reference a bug"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 0 {
					return usage(c, "too many arguments")
				}
				return (&commands.Patch{Env: env, NoBZ: c.Bool("nobz")}).Run(c.Context)
			},
		},
		{
			Name:      "source",
			Usage:     "Build a source package on the local system",
			ArgsUsage: " ",
			Action: noArgs(func(ctx context.Context) error {
				return (&commands.Source{Env: env}).Run(ctx)
			}),
		},
		{
			Name:      "watch-build",
			Usage:     "Watch a build-package Jenkins job",
			ArgsUsage: "<build number>",
			Action: oneArg("build number", func(ctx context.Context, arg string) error {
				n, err := strconv.Atoi(arg)
				if err != nil || n <= 0 {
					return cli.Exit(fmt.Sprintf("%q is not a build number", arg), 2)
				}
				return (&commands.WatchBuild{Env: env}).Run(ctx, n)
			}),
		},
	}
	for _, cmd := range cmds {
		cmd.OnUsageError = onUsageError
	}

	return &cli.App{
		Name:    "rhcephpkg",
		Usage:   "Packaging tool for Red Hat Ceph Storage product",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "log debug output"},
		},
		Before:       setup,
		Commands:     cmds,
		OnUsageError: onUsageError,
	}
}
