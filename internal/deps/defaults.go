package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// DefaultRequirements lists the external binaries the installer and daemon
// expect on the host. nvidia-smi is optional because the WebUI container can
// fall back to CPU rendering, slowly.
func DefaultRequirements() []Requirement {
	return []Requirement{
		{Name: "Git", Command: "git", Description: "Used by setup to clone the Stable Diffusion WebUI"},
		{Name: "Docker", Command: "docker", Description: "Runs the WebUI and application containers"},
		{Name: "NVIDIA SMI", Command: "nvidia-smi", Description: "GPU passthrough for Stable Diffusion rendering", Optional: true},
	}
}

// CheckDockerCompose reports availability of the docker compose plugin.
// The plugin is a docker subcommand, so LookPath alone cannot see it.
func CheckDockerCompose() Status {
	status := Status{
		Name:        "Docker Compose",
		Command:     "docker compose",
		Description: "Orchestrates the WebUI and application containers",
	}
	dockerPath, err := exec.LookPath("docker")
	if err != nil {
		status.Detail = `binary "docker" not found`
		return status
	}
	out, err := exec.Command(dockerPath, "compose", "version").CombinedOutput()
	if err != nil {
		status.Detail = fmt.Sprintf("docker compose plugin unavailable: %s", strings.TrimSpace(string(out)))
		return status
	}
	status.Available = true
	return status
}

// CheckAll combines the default binary requirements with the compose check.
func CheckAll() []Status {
	results := CheckBinaries(DefaultRequirements())
	return append(results, CheckDockerCompose())
}
