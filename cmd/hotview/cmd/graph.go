package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/declview/hotview/internal/app"
	"github.com/declview/hotview/internal/config"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/registry"
)

var (
	graphFormat string
	graphRoot   string
	graphLocal  bool
)

// graphCmd prints the include graph.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the project's include graph",
	Long: `Print the include graph: which root views expand which fragments.

If a hotview daemon is running, the graph reflects its live state.
Otherwise the project is scanned on the spot.

Examples:
  hotview graph                       # Text tree
  hotview graph --format dot          # Graphviz DOT
  hotview graph --format mermaid      # Mermaid flowchart
  hotview graph --root app/Main.view  # One root's subtree
  hotview graph --local               # Skip the daemon, scan directly`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringVar(&graphFormat, "format", "text", "output format: text, dot, or mermaid")
	graphCmd.Flags().StringVar(&graphRoot, "root", "", "limit output to one root's subtree")
	graphCmd.Flags().BoolVar(&graphLocal, "local", false, "scan the project instead of asking a running daemon")
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !graphLocal {
		rendered, serverErr := graphFromServer(cfg)
		if serverErr == nil {
			fmt.Print(rendered)
			return nil
		}
		fmt.Fprintln(os.Stderr, "No running hotview daemon found, scanning project directly")
	}

	rendered, err := graphFromScan(cfg)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}

func graphFromServer(cfg *config.Config) (string, error) {
	query := url.Values{}
	query.Set("format", graphFormat)
	if graphRoot != "" {
		query.Set("root", graphRoot)
	}
	endpoint := fmt.Sprintf("http://%s:%d/api/graph?%s", cfg.Server.Host, cfg.Server.Port, query.Encode())

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var payload events.GraphResponsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Graph, nil
}

func graphFromScan(cfg *config.Config) (string, error) {
	disc, err := app.Discover(cfg.Project.Path, cfg.Watcher.ViewExtensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: project scan incomplete: %v\n", err)
	}

	graph := registry.NewGraph()
	for _, root := range disc.Roots {
		graph.SetEdges(root.Resource, root.Includes)
	}
	if graphRoot != "" {
		graph = graph.Subgraph(graphRoot)
	}

	switch graphFormat {
	case "text":
		return graph.Text(), nil
	case "dot":
		return graph.DOT(), nil
	case "mermaid":
		return graph.Mermaid(), nil
	default:
		return "", fmt.Errorf("unknown graph format %q (use text, dot, or mermaid)", graphFormat)
	}
}
