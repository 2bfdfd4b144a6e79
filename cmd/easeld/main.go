// Command easeld runs the easel daemon in the foreground. It is the
// entrypoint used by the container image; interactive hosts normally go
// through `easel start`, which launches the daemon detached.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"easel/internal/config"
	"easel/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	socketPath := flag.String("socket", "", "IPC socket path")
	logLevel := flag.String("log-level", "", "Override configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "easeld: %v\n", err)
		os.Exit(1)
	}
}
