// Package skillfile loads skill graphs from YAML files. Files use
// symbolic connection codes ("move", "reject") instead of the numeric
// result codes, and every loaded skill is validated against a block
// registry before the engine ever sees it.
package skillfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nbrandt/espalier/pkg/block"
	"github.com/nbrandt/espalier/pkg/domain"
)

// codeNames maps the symbolic connection codes used in skill files to
// result codes.
var codeNames = map[string]domain.ResultCode{
	"reject": domain.CodeReject,
	"accept": domain.CodeAccept,
	"move":   domain.CodeMove,
	"move_x": domain.CodeMoveX,
	"move_y": domain.CodeMoveY,
	"move_z": domain.CodeMoveZ,
}

type fileBlock struct {
	ID          string            `yaml:"id"`
	Component   string            `yaml:"component"`
	Properties  yaml.Node         `yaml:"properties"`
	Connections map[string]string `yaml:"connections"`
}

type fileSkill struct {
	Package string      `yaml:"package"`
	Start   string      `yaml:"start"`
	Blocks  []fileBlock `yaml:"blocks"`
}

// Parse decodes one skill document.
func Parse(data []byte) (*domain.Skill, error) {
	var fsk fileSkill
	if err := yaml.Unmarshal(data, &fsk); err != nil {
		return nil, fmt.Errorf("failed to parse skill file: %w", err)
	}

	skill := &domain.Skill{
		Package: fsk.Package,
		Start:   fsk.Start,
		Blocks:  make([]domain.BlockDef, 0, len(fsk.Blocks)),
	}
	for _, fb := range fsk.Blocks {
		props, err := parseProperties(fb.Properties)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", fb.ID, err)
		}
		conns, err := parseConnections(fb.Connections)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", fb.ID, err)
		}
		skill.Blocks = append(skill.Blocks, domain.BlockDef{
			ID:          fb.ID,
			Component:   fb.Component,
			Properties:  props,
			Connections: conns,
		})
	}
	return skill, nil
}

// parseProperties keeps the document's property order, which matters
// for ordered choice lists.
func parseProperties(node yaml.Node) ([]domain.Property, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("properties must be a mapping")
	}
	props := make([]domain.Property, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return nil, fmt.Errorf("invalid property name: %w", err)
		}
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid value for property %s: %w", name, err)
		}
		props = append(props, domain.Property{Name: name, Value: value})
	}
	return props, nil
}

func parseConnections(raw map[string]string) (map[domain.ResultCode]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	conns := make(map[domain.ResultCode]string, len(raw))
	for name, target := range raw {
		code, ok := codeNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown connection code %q", name)
		}
		conns[code] = target
	}
	return conns, nil
}

// Load reads and parses one skill file.
func Load(path string) (*domain.Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill file: %w", err)
	}
	skill, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return skill, nil
}

// LoadDir loads every .yml/.yaml file under dir, non-recursively, and
// validates each against the registry. Package ids must be unique
// across the directory.
func LoadDir(dir string, registry *block.Registry) ([]*domain.Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill directory: %w", err)
	}

	var skills []*domain.Skill
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isSkillFile(entry) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		skill, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err := Validate(skill, registry); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := seen[skill.Package]; ok {
			return nil, fmt.Errorf("%s: package %s already defined in %s", path, skill.Package, prev)
		}
		seen[skill.Package] = path
		skills = append(skills, skill)
	}
	return skills, nil
}

func isSkillFile(entry fs.DirEntry) bool {
	ext := strings.ToLower(filepath.Ext(entry.Name()))
	return ext == ".yml" || ext == ".yaml"
}
