package commands

import (
	"fmt"

	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/version"
)

// printStartupBanner prints the server startup box
func printStartupBanner(verbosity, port int, source, provider string) {
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	bold := "\033[1m"
	reset := "\033[0m"

	info := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔═══════════════════════════════════════╗\n")
	fmt.Printf("   ║                                       ║\n")
	fmt.Printf("   ║    ███ █   █ ████  █████              ║\n")
	fmt.Printf("   ║   █    ██ ██ █   █   █                ║\n")
	fmt.Printf("   ║    ██  █ █ █ ████    █                ║\n")
	fmt.Printf("   ║      █ █   █ █  █    █                ║\n")
	fmt.Printf("   ║   ███  █   █ █   █   █   inventory    ║\n")
	fmt.Printf("   ║                                       ║\n")
	fmt.Printf("   ╚═══════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ smrt ──────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:    %s (commit %s)\n", green, reset, info.Version, info.Short())
	fmt.Printf("%s│%s Built:      %s\n", green, reset, info.BuildTime)
	fmt.Printf("%s│%s Verbosity:  %s\n", green, reset, levelName(verbosity))
	fmt.Printf("%s│%s Source:     %s\n", green, reset, source)
	fmt.Printf("%s│%s Classifier: %s\n", green, reset, provider)
	fmt.Printf("%s│%s Listening:  http://localhost:%d\n", green, reset, port)
	fmt.Printf("%s└─────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%sAsk questions at POST /api/chat or /ws/chat%s\n", yellow, bold, reset)
	fmt.Printf("%sPress Ctrl+C to stop%s\n\n", blue, reset)
}

func levelName(verbosity int) string {
	return logger.VerbosityToLevel(verbosity).CapitalString()
}

func initLogger(jsonLogs bool, verbosity int) error {
	if err := logger.Initialize(jsonLogs, verbosity); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
