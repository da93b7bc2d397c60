// ABOUTME: Terminal client for matlab-gateway: run code, a REPL, session control.
// ABOUTME: Talks MCP over HTTP to a running gateway.

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "matlab-cli",
		Short:         "Run MATLAB code through a matlab-gateway server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newExecCmd(),
		newRunCmd(),
		newReplCmd(),
		newSessionsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// dial loads config, connects, and hands the caller a live client. The
// cleanup func terminates the MCP session.
func dial(cmd *cobra.Command) (*client, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	c := newClient(cfg)
	ctx := cmd.Context()
	if err := c.connect(ctx); err != nil {
		return nil, nil, err
	}
	return c, func() { c.close(ctx) }, nil
}

func newExecCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute a snippet of MATLAB code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("no code given; use -c 'disp(1+1)'")
			}
			c, done, err := dial(cmd)
			if err != nil {
				return err
			}
			defer done()

			out, err := c.callTool(cmd.Context(), "execute_matlab", map[string]any{"code": code})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&code, "code", "c", "", "MATLAB code to execute")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.m>",
		Short: "Execute a MATLAB script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if filepath.Ext(path) != ".m" {
				return fmt.Errorf("expected a .m file, got %q", path)
			}
			code, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading script: %w", err)
			}

			c, done, err := dial(cmd)
			if err != nil {
				return err
			}
			defer done()

			out, err := c.callTool(cmd.Context(), "execute_matlab", map[string]any{"code": string(code)})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive MATLAB prompt against the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := dial(cmd)
			if err != nil {
				return err
			}
			defer done()

			cyan := color.New(color.FgCyan)
			red := color.New(color.FgRed)
			gray := color.New(color.FgHiBlack)

			gray.Println("matlab-cli repl; type 'exit' or Ctrl-D to quit")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				cyan.Print(">> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}

				out, err := c.callTool(cmd.Context(), "execute_matlab", map[string]any{"code": line})
				if err != nil {
					red.Println(err)
					continue
				}
				fmt.Println(out)
			}
		},
	}
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and attach to shared MATLAB sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := dial(cmd)
			if err != nil {
				return err
			}
			defer done()

			out, err := c.callTool(cmd.Context(), "session", map[string]any{"op": "list"})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "connect <name>",
		Short: "Attach the gateway to a named shared session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := dial(cmd)
			if err != nil {
				return err
			}
			defer done()

			out, err := c.callTool(cmd.Context(), "session", map[string]any{
				"op":           "connect",
				"session_name": args[0],
			})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Show the gateway's active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := dial(cmd)
			if err != nil {
				return err
			}
			defer done()

			out, err := c.callTool(cmd.Context(), "session", map[string]any{"op": "current"})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	})

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version)
		},
	}
}
