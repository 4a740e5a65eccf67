package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and inference target",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

var versionOutput string

func init() {
	addOutputFlag(versionCmd, &versionOutput)
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GoVersion string `json:"goVersion" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
	Server    string `json:"server,omitempty" yaml:"server,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := versionInfo{
		Version:   version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			info.Server = s.Inference.ServerURL
			info.Model = s.Inference.Model
		}
	}

	if done, err := printStructured(cmd, versionOutput, info); done {
		return err
	}

	cmd.Printf("sercha-chat version %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
	if info.Server != "" {
		cmd.Printf("inference: %s at %s\n", info.Model, info.Server)
	}
	return nil
}
