package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// TestValidate checks required fields, format validations and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Missing socket.
	require.Error(t, Validate(new(Config)))

	// Bad socket.
	require.Error(t, Validate(&Config{ServerAddress: "bad:address"}))

	// Bad metrics socket.
	require.Error(t, Validate(&Config{ServerAddress: "127.0.0.1:0", MetricsAddress: "bad:address"}))

	// Bad gateway.
	require.Error(t, Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		InfoPV:        InfoPVConfig{GatewayURL: "not a url"},
	}))

	require.Error(t, Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Actions:       ActionsConfig{Workers: -1},
	}))

	cfg := &Config{ServerAddress: "127.0.0.1:0"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultStateFilename, cfg.StateFile)
	require.Equal(t, DefaultStateSaveDelay, cfg.StateSaveDelay)
	require.Equal(t, DefaultTreeFilename, cfg.TreeFile)
	require.Equal(t, []string{"mailto:"}, cfg.Actions.Followup)
	require.Equal(t, DefaultWorkers, cfg.Actions.Workers)
	require.Equal(t, DefaultCommandTimeout, cfg.Actions.CommandTimeout)
	require.Equal(t, DefaultSMTPPort, cfg.SMTP.Port)
	require.Equal(t, DefaultGracePeriod, cfg.InfoPV.GracePeriod)
	require.Equal(t, DefaultRetryInterval, cfg.InfoPV.RetryInterval)
	require.Equal(t, DefaultMaxAlarms, cfg.InfoPV.MaxAlarms)
	require.Equal(t, DefaultInfoPVWriters, cfg.InfoPV.Writers)

	// An explicit empty follow-up list disables follow-ups.
	cfg = &Config{ServerAddress: "127.0.0.1:0", Actions: ActionsConfig{Followup: []string{}}}
	require.NoError(t, Validate(cfg))
	require.Empty(t, cfg.Actions.Followup)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		ServerAddress:  "127.0.0.1:50051",
		MetricsAddress: "127.0.0.1:9090",
		Timeout:        3 * time.Second,
		Actions: ActionsConfig{
			Followup:       []string{"mailto:", "cmd:notify"},
			NotifyDisabled: true,
			CommandTimeout: 30 * time.Second,
		},
		SMTP:   SMTPConfig{Host: "smtp.site", From: "alarms@site"},
		InfoPV: InfoPVConfig{GatewayURL: "http://gateway.site/pv"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.Error(t, Save(path, nil))
}

// TestLoadFromYAML reads durations and nested sections written by hand.
func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `server_addr: 127.0.0.1:7000
timeout: 2s
actions:
  workers: 8
infopv:
  grace_period: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.Timeout)
	require.Equal(t, 8, cfg.Actions.Workers)
	require.Equal(t, 30*time.Second, cfg.InfoPV.GracePeriod)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoadTree parses nested nodes and patches display links.
func TestLoadTree(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tree.yaml")
	contents := `name: Accelerator
children:
  - name: Vacuum
    guidance:
      - title: Call
        details: vacuum expert
    children:
      - name: "SR:Pump1"
        pv: true
        description: Pump 1 pressure
        displays:
          - title: Pump
            details: "opi:pumps.bob"
        actions:
          - title: Mail
            details: "mailto:vacuum@site"
            delay: 30
      - name: "SR:Pump2"
        pv: true
        enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	root, err := LoadTree(path)
	require.NoError(t, err)
	require.Equal(t, "Accelerator", root.Name)
	require.Len(t, root.Children, 1)

	vacuum := root.Children[0]
	require.Equal(t, []alarm.TitleDetail{{Title: "Call", Detail: "vacuum expert"}}, vacuum.Guidance)
	require.True(t, vacuum.IsEnabled())

	pump1, pump2 := vacuum.Children[0], vacuum.Children[1]
	require.True(t, pump1.PV)
	require.Equal(t, "pumps.bob", pump1.Displays[0].Detail)
	require.Equal(t, []alarm.TitleDetailDelay{{Title: "Mail", Detail: "mailto:vacuum@site", Delay: 30}}, pump1.Actions)
	require.False(t, pump2.IsEnabled())
}

// TestValidateTree rejects malformed trees.
func TestValidateTree(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ValidateTree(&TreeNode{}), ErrEmptyName)

	require.ErrorIs(t, ValidateTree(&TreeNode{
		Name:     "root",
		Children: []*TreeNode{{Name: "a"}, {Name: "a"}},
	}), ErrDuplicateName)

	require.ErrorIs(t, ValidateTree(&TreeNode{
		Name:     "root",
		Children: []*TreeNode{{Name: "pv", PV: true, Children: []*TreeNode{{Name: "x"}}}},
	}), ErrLeafChildren)

	require.ErrorIs(t, ValidateTree(&TreeNode{
		Name:    "root",
		Actions: []alarm.TitleDetailDelay{{Detail: "cmd:x", Delay: -1}},
	}), ErrNegativeDelay)
}
