package lib

import (
	"fmt"
	"os"
	"os/exec"

	"pubtools/pkg/config"
)

// CheckResult is the availability of one external dependency.
type CheckResult struct {
	Name   string
	Detail string
	OK     bool
}

// Check reports whether the tools and key file named by cfg are usable.
func Check(cfg *config.Config) []CheckResult {
	var results []CheckResult

	if cfg.Compressor.Mode == config.ModeCommand {
		results = append(results, checkProgram("compressor", cfg.Compressor.Command))
	} else {
		results = append(results, CheckResult{
			Name:   "compressor",
			Detail: fmt.Sprintf("built-in lz4, level %d", cfg.Compressor.Level),
			OK:     true,
		})
	}

	results = append(results, checkProgram("encryptor", cfg.Encryptor.Command))

	if cfg.Encryptor.KeyFile != "" {
		r := CheckResult{Name: "key file", Detail: cfg.Encryptor.KeyFile}
		info, err := os.Stat(cfg.Encryptor.KeyFile)
		switch {
		case err != nil:
			r.Detail = err.Error()
		case info.IsDir():
			r.Detail = cfg.Encryptor.KeyFile + " is a directory"
		default:
			r.OK = true
		}
		results = append(results, r)
	}
	return results
}

func checkProgram(name string, args []string) CheckResult {
	if len(args) == 0 {
		return CheckResult{Name: name, Detail: "no command configured"}
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return CheckResult{Name: name, Detail: err.Error()}
	}
	return CheckResult{Name: name, Detail: path, OK: true}
}
