// Package main is hiveswarmctl, a line-protocol client for hiveswarmd's
// control socket. It is meant for scripting and manual debugging: every
// subcommand dials the socket, writes one newline-terminated JSON
// command, reads one newline-terminated JSON response, and prints it.
//
// Send a raw command:
//
//	hiveswarmctl raw '{"action":"schema"}'
//
// Or use one of the convenience subcommands:
//
//	hiveswarmctl swarm create --id s1 --topology hierarchical --agents a,b,c
//	hiveswarmctl swarm execute --swarm-id s1 --task "ship the release"
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var socketPath string

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hiveswarmctl",
		Short:        "Debug client for the hiveswarmd control socket",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/tmp/anf_python.sock", "Path to the hiveswarmd control socket")
	rootCmd.AddCommand(
		buildRawCmd(),
		buildSwarmCmd(),
		buildHiveCmd(),
		buildAgentCmd(),
		buildHealthCmd(),
	)
	return rootCmd
}

// send dials the socket, writes one command line, reads one response
// line, and returns the decoded response.
func send(action string, params map[string]any) (map[string]any, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	payload, err := json.Marshal(map[string]any{"action": action, "params": params})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return resp, nil
}

func printResponse(cmd *cobra.Command, resp map[string]any) error {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if _, ok := resp["error"]; ok {
		return fmt.Errorf("%v", resp["error"])
	}
	return nil
}

func buildRawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <json-command>",
		Short: "Send a raw JSON command line and print the raw response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
			if err != nil {
				return fmt.Errorf("dial %s: %w", socketPath, err)
			}
			defer conn.Close()

			if _, err := conn.Write([]byte(args[0] + "\n")); err != nil {
				return fmt.Errorf("write command: %w", err)
			}
			line, err := bufio.NewReader(conn).ReadBytes('\n')
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(line))
			return nil
		},
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func buildSwarmCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "swarm", Short: "Create, execute, inspect, and dissolve swarms"}
	cmd.AddCommand(buildSwarmCreateCmd(), buildSwarmExecuteCmd(), buildSwarmStatusCmd(), buildSwarmListCmd(), buildSwarmDissolveCmd())
	return cmd
}

func buildSwarmCreateCmd() *cobra.Command {
	var id, topology, agents string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a swarm over a set of agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("swarm_create", map[string]any{"id": id, "topology": topology, "agents": splitCSV(agents)})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Swarm id")
	cmd.Flags().StringVar(&topology, "topology", "hierarchical", "Topology: hierarchical|mesh|collective|adaptive")
	cmd.Flags().StringVar(&agents, "agents", "", "Comma-separated agent ids")
	return cmd
}

func buildSwarmExecuteCmd() *cobra.Command {
	var swarmID, task string
	var timeoutSeconds float64
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a task on an existing swarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"swarm_id": swarmID, "task": task}
			if timeoutSeconds > 0 {
				params["timeout"] = timeoutSeconds
			}
			resp, err := send("swarm_execute", params)
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&swarmID, "swarm-id", "", "Swarm id")
	cmd.Flags().StringVar(&task, "task", "", "Task description")
	cmd.Flags().Float64Var(&timeoutSeconds, "timeout", 0, "Task timeout in seconds (0 = no deadline)")
	return cmd
}

func buildSwarmStatusCmd() *cobra.Command {
	var swarmID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a swarm's current members and health",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("swarm_status", map[string]any{"swarm_id": swarmID})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&swarmID, "swarm-id", "", "Swarm id")
	return cmd
}

func buildSwarmListCmd() *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every active swarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("swarm_list", map[string]any{"detailed": detailed})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include full status per swarm")
	return cmd
}

func buildSwarmDissolveCmd() *cobra.Command {
	var swarmID string
	var saveResults bool
	cmd := &cobra.Command{
		Use:   "dissolve",
		Short: "Dissolve a swarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("swarm_dissolve", map[string]any{"swarm_id": swarmID, "save_results": saveResults})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&swarmID, "swarm-id", "", "Swarm id")
	cmd.Flags().BoolVar(&saveResults, "save-results", false, "Persist results to hive memory before dissolving")
	return cmd
}

func buildHiveCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "hive", Short: "Initialize hive nodes, run decisions, and query shared memory"}
	cmd.AddCommand(buildHiveInitCmd(), buildHiveDecideCmd(), buildHiveRememberCmd(), buildHiveRecallCmd(), buildHiveStatusCmd())
	return cmd
}

func buildHiveInitCmd() *cobra.Command {
	var agents string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create hive nodes for a set of agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("hive_init", map[string]any{"agents": splitCSV(agents)})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&agents, "agents", "", "Comma-separated agent ids")
	return cmd
}

func buildHiveDecideCmd() *cobra.Command {
	var question, options, method string
	var timeoutSeconds float64
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Run a democratic decision over a set of options",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{"question": question, "options": splitCSV(options), "method": method}
			if timeoutSeconds > 0 {
				params["timeout"] = timeoutSeconds
			}
			resp, err := send("hive_decide", params)
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&question, "question", "", "Decision question")
	cmd.Flags().StringVar(&options, "options", "", "Comma-separated option ids")
	cmd.Flags().StringVar(&method, "method", "consensus", "Method: consensus|weighted|quorum|emergent")
	cmd.Flags().Float64Var(&timeoutSeconds, "timeout", 0, "Vote-collection timeout in seconds")
	return cmd
}

func buildHiveRememberCmd() *cobra.Command {
	var content, memoryType, contributors string
	var confidence float64
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Store a fragment in the hive's shared memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("hive_remember", map[string]any{
				"content": content, "memory_type": memoryType, "contributors": splitCSV(contributors), "confidence": confidence,
			})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "Fragment content")
	cmd.Flags().StringVar(&memoryType, "type", "working", "Memory type: episodic|semantic|procedural|working")
	cmd.Flags().StringVar(&contributors, "contributors", "", "Comma-separated contributing agent ids")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.7, "Initial confidence [0,1]")
	return cmd
}

func buildHiveRecallCmd() *cobra.Command {
	var query, memoryType string
	var minConfidence float64
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Query the hive's shared memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("hive_recall", map[string]any{"query": query, "memory_type": memoryType, "min_confidence": minConfidence})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Recall query")
	cmd.Flags().StringVar(&memoryType, "type", "", "Memory type filter")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.0, "Minimum confidence filter")
	return cmd
}

func buildHiveStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show hive node, memory, and decision counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("hive_status", map[string]any{})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	return cmd
}

func buildAgentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agent", Short: "List and inspect registered agents"}
	cmd.AddCommand(buildAgentListCmd(), buildAgentInfoCmd())
	return cmd
}

func buildAgentListCmd() *cobra.Command {
	var category string
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("agent_list", map[string]any{"category": category, "active": active})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&category, "tier", "", "Filter by tier")
	cmd.Flags().BoolVar(&active, "active", false, "Only show currently active agents")
	return cmd
}

func buildHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run the daemon's registry and circuit-breaker liveness checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("health", nil)
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
}

func buildAgentInfoCmd() *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show one agent's configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send("agent_info", map[string]any{"agent": agent})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Agent id")
	return cmd
}
