package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OutagemonParser implements the Parser interface for outagemon.conf files.
type OutagemonParser struct{}

// DefaultGlobalOptions returns baseline settings used before config overrides.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Interval:          1 * time.Second,
		Timeout:           1 * time.Second,
		LossThreshold:     3,
		RecoveryThreshold: 11,
		EventsFile:        "downtime_events.json",
		ReportFile:        "downtime_report.html",
		AlertsFile:        "",
		MetricsListen:     "",
		LogFile:           "",
		UIDisable:         false,
	}
}

// LoadConfig parses an outagemon.conf file with CLI overrides applied.
func (p OutagemonParser) LoadConfig(path string, overrides CLIOverrides) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := &Config{Global: DefaultGlobalOptions()}

	scanner := bufio.NewScanner(file)
	groupIndex := 0
	currentGroup := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "# outagemon:") {
				pairs, err := p.ParseDirective(line)
				if err != nil {
					return nil, err
				}
				if err := applyDirective(&cfg.Global, pairs); err != nil {
					return nil, err
				}
			}
			continue
		}

		if strings.HasPrefix(line, "outagemon:") {
			pairs, err := p.ParseDirective(line)
			if err != nil {
				return nil, err
			}
			if err := applyDirective(&cfg.Global, pairs); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(line, "---") {
			groupIndex++
			groupName := strings.TrimSpace(strings.TrimPrefix(line, "---"))
			if groupName == "" {
				groupName = fmt.Sprintf("group-%d", groupIndex)
			}
			currentGroup = groupName
			continue
		}

		target, err := p.ParseTargetLine(line, currentGroup)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	applyCLIOverrides(&cfg.Global, overrides)
	return cfg, nil
}

// ParseDirective extracts key=value pairs from a directive line.
func (p OutagemonParser) ParseDirective(line string) (map[string]string, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	} else if !strings.HasPrefix(trimmed, "outagemon:") {
		return nil, fmt.Errorf("directive line must start with '# outagemon:' or 'outagemon:': %q", line)
	}
	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, "outagemon:"))
	if payload == "" {
		return map[string]string{}, nil
	}

	pairs := make(map[string]string)
	for _, token := range strings.Fields(payload) {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid directive token: %q", token)
		}
		pairs[kv[0]] = kv[1]
	}
	return pairs, nil
}

// ParseTargetLine parses a single target definition. A bare address is its
// own name.
func (p OutagemonParser) ParseTargetLine(line string, group string) (TargetConfig, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return TargetConfig{}, fmt.Errorf("invalid target line: %q", line)
	}

	target := TargetConfig{
		Name:    fields[0],
		Address: fields[0],
		Group:   group,
		Options: map[string]string{},
	}
	if len(fields) > 1 {
		target.Address = fields[1]
	}

	if len(fields) > 2 {
		for _, field := range fields[2:] {
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 {
				return TargetConfig{}, fmt.Errorf("invalid target option: %q", field)
			}
			target.Options[kv[0]] = kv[1]
		}
	}

	return target, nil
}

func applyDirective(global *GlobalOptions, pairs map[string]string) error {
	for key, val := range pairs {
		switch key {
		case "interval":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid interval: %w", err)
			}
			global.Interval = d
		case "timeout":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			global.Timeout = d
		case "loss_threshold":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid loss_threshold: %q", val)
			}
			global.LossThreshold = n
		case "recovery_threshold":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid recovery_threshold: %q", val)
			}
			global.RecoveryThreshold = n
		case "events_file":
			global.EventsFile = val
		case "report_file":
			global.ReportFile = val
		case "alerts_file":
			global.AlertsFile = val
		case "log_file":
			global.LogFile = val
		case "metrics.listen":
			if isDigits(val) {
				global.MetricsListen = ":" + val
			} else {
				global.MetricsListen = val
			}
		case "ui.disable":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid ui.disable: %w", err)
			}
			global.UIDisable = b
		default:
			// Ignore unknown keys for forward compatibility.
		}
	}
	return nil
}

func applyCLIOverrides(global *GlobalOptions, overrides CLIOverrides) {
	if overrides.Interval != nil {
		global.Interval = *overrides.Interval
	}
	if overrides.Timeout != nil {
		global.Timeout = *overrides.Timeout
	}
	if overrides.LossThreshold != nil {
		global.LossThreshold = *overrides.LossThreshold
	}
	if overrides.RecoveryThreshold != nil {
		global.RecoveryThreshold = *overrides.RecoveryThreshold
	}
	if overrides.EventsFile != nil {
		global.EventsFile = *overrides.EventsFile
	}
	if overrides.ReportFile != nil {
		global.ReportFile = *overrides.ReportFile
	}
	if overrides.MetricsListen != nil {
		val := *overrides.MetricsListen
		if isDigits(val) {
			val = ":" + val
		}
		global.MetricsListen = val
	}
	if overrides.UIDisable != nil {
		global.UIDisable = *overrides.UIDisable
	}
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
