package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// legacyDisplayPrefix marks display links written for the old display tool.
const legacyDisplayPrefix = "opi:"

var (
	// ErrEmptyName is returned for a tree node without a name.
	ErrEmptyName = errors.New("tree node name is empty")
	// ErrDuplicateName is returned when siblings share a name.
	ErrDuplicateName = errors.New("duplicate tree node name")
	// ErrLeafChildren is returned when a pv node has children.
	ErrLeafChildren = errors.New("pv node cannot have children")
	// ErrNegativeDelay is returned for an action with a negative delay.
	ErrNegativeDelay = errors.New("action delay must not be negative")
)

// TreeNode is one node of the alarm tree file.
type TreeNode struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// PV marks an alarm source. PV nodes are leaves.
	PV bool `yaml:"pv,omitempty"`
	// Enabled defaults to true.
	Enabled  *bool                    `yaml:"enabled,omitempty"`
	Guidance []alarm.TitleDetail      `yaml:"guidance,omitempty"`
	Displays []alarm.TitleDetail      `yaml:"displays,omitempty"`
	Commands []alarm.TitleDetail      `yaml:"commands,omitempty"`
	Actions  []alarm.TitleDetailDelay `yaml:"actions,omitempty"`
	Children []*TreeNode              `yaml:"children,omitempty"`
}

// IsEnabled reports whether the node's alarms are enabled.
func (n *TreeNode) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// LoadTree reads and validates the alarm tree file.
func LoadTree(path string) (*TreeNode, error) {
	if path == "" {
		path = DefaultTreeFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read alarm tree: %w", err)
	}

	var root TreeNode
	if err = yaml.Unmarshal(contents, &root); err != nil {
		return nil, fmt.Errorf("unmarshal alarm tree: %w", err)
	}

	if err = ValidateTree(&root); err != nil {
		return nil, err
	}

	return &root, nil
}

// ValidateTree checks names, leaves and delays, and rewrites legacy
// display links in place.
func ValidateTree(node *TreeNode) error {
	return validateNode(node, "")
}

func validateNode(node *TreeNode, parentPath string) error {
	if strings.TrimSpace(node.Name) == "" {
		return fmt.Errorf("%w under %q", ErrEmptyName, parentPath)
	}

	path := parentPath + "/" + node.Name

	if node.PV && len(node.Children) > 0 {
		return fmt.Errorf("%w: %s", ErrLeafChildren, path)
	}

	for _, action := range node.Actions {
		if action.Delay < 0 {
			return fmt.Errorf("%w: %s %s", ErrNegativeDelay, path, action)
		}
	}

	for i, display := range node.Displays {
		node.Displays[i].Detail = patchDisplay(display.Detail)
	}

	seen := make(map[string]struct{}, len(node.Children))

	for _, child := range node.Children {
		if _, ok := seen[child.Name]; ok {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateName, path, child.Name)
		}

		seen[child.Name] = struct{}{}

		if err := validateNode(child, path); err != nil {
			return err
		}
	}

	return nil
}

// patchDisplay strips the legacy display prefix.
func patchDisplay(detail string) string {
	return strings.TrimPrefix(detail, legacyDisplayPrefix)
}
