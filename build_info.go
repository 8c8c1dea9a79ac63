package main

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// BuildInfo contém informações de versão da aplicação
type BuildInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Module    string
}

// GetBuildInfo extrai informações de build usando debug.BuildInfo
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   "dev",
		Commit:    "unknown",
		Date:      "unknown",
		GoVersion: "unknown",
		Module:    "unknown",
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = bi.GoVersion
	info.Module = bi.Main.Path
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = shortCommit(s.Value)
		case "vcs.time":
			info.Date = s.Value
		}
	}

	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String formats the build information for -version
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("cropwatch - crop telemetry range monitor\n")
	fmt.Fprintf(&sb, "Version: %s\n", b.Version)
	fmt.Fprintf(&sb, "Commit: %s\n", b.Commit)
	fmt.Fprintf(&sb, "Build Date: %s\n", b.Date)
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)
	fmt.Fprintf(&sb, "Module: %s\n", b.Module)
	return sb.String()
}
