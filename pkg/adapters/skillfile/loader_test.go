package skillfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/adapters/skillfile"
	"github.com/nbrandt/espalier/pkg/block"
	"github.com/nbrandt/espalier/pkg/domain"
)

const registrationYAML = `package: com.acme.registration
start: ask-name
blocks:
  - id: ask-name
    component: input.text
    properties:
      key: name
      required: true
    connections:
      move: welcome
  - id: welcome
    component: prompt.text
    properties:
      text: "Welcome, {{.data.name}}!"
    connections:
      move: end
  - id: end
    component: terminal
`

func TestParse(t *testing.T) {
	skill, err := skillfile.Parse([]byte(registrationYAML))
	require.NoError(t, err)

	assert.Equal(t, "com.acme.registration", skill.Package)
	assert.Equal(t, "ask-name", skill.Start)
	require.Len(t, skill.Blocks, 3)

	ask := skill.Blocks[0]
	assert.Equal(t, "input.text", ask.Component)
	require.Len(t, ask.Properties, 2)
	// Document order survives parsing.
	assert.Equal(t, "key", ask.Properties[0].Name)
	assert.Equal(t, "name", ask.Properties[0].Value)
	assert.Equal(t, "required", ask.Properties[1].Name)
	assert.Equal(t, true, ask.Properties[1].Value)
	assert.Equal(t, "welcome", ask.Connections[domain.CodeMove])

	end := skill.Blocks[2]
	assert.Empty(t, end.Connections)
}

func TestParseBadConnectionCode(t *testing.T) {
	_, err := skillfile.Parse([]byte(`package: p
start: a
blocks:
  - id: a
    component: terminal
    connections:
      sideways: a
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestParseBadProperties(t *testing.T) {
	_, err := skillfile.Parse([]byte(`package: p
start: a
blocks:
  - id: a
    component: prompt.text
    properties:
      - not
      - a
      - mapping
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping")
}

func TestValidate(t *testing.T) {
	registry := block.Default()

	parse := func(t *testing.T, doc string) *domain.Skill {
		t.Helper()
		skill, err := skillfile.Parse([]byte(doc))
		require.NoError(t, err)
		return skill
	}

	t.Run("valid skill", func(t *testing.T) {
		skill := parse(t, registrationYAML)
		assert.NoError(t, skillfile.Validate(skill, registry))
	})

	t.Run("unknown component", func(t *testing.T) {
		skill := parse(t, `package: p
start: a
blocks:
  - id: a
    component: input.telepathy
`)
		var gerr *domain.GraphError
		require.ErrorAs(t, skillfile.Validate(skill, registry), &gerr)
		assert.Equal(t, "a", gerr.BlockID)
	})

	t.Run("missing required property", func(t *testing.T) {
		skill := parse(t, `package: p
start: a
blocks:
  - id: a
    component: input.text
`)
		assert.Error(t, skillfile.Validate(skill, registry))
	})

	t.Run("dangling connection", func(t *testing.T) {
		skill := parse(t, `package: p
start: a
blocks:
  - id: a
    component: terminal
    connections:
      move: ghost
`)
		var gerr *domain.GraphError
		require.ErrorAs(t, skillfile.Validate(skill, registry), &gerr)
		assert.Contains(t, gerr.Reason, "ghost")
	})

	t.Run("missing start", func(t *testing.T) {
		skill := parse(t, `package: p
start: ghost
blocks:
  - id: a
    component: terminal
`)
		assert.Error(t, skillfile.Validate(skill, registry))
	})

	t.Run("unreachable block", func(t *testing.T) {
		skill := parse(t, `package: p
start: a
blocks:
  - id: a
    component: terminal
  - id: island
    component: terminal
`)
		var gerr *domain.GraphError
		require.ErrorAs(t, skillfile.Validate(skill, registry), &gerr)
		assert.Equal(t, "island", gerr.BlockID)
	})

	t.Run("no terminal", func(t *testing.T) {
		skill := parse(t, `package: p
start: a
blocks:
  - id: a
    component: prompt.text
    properties:
      text: hi
`)
		var gerr *domain.GraphError
		require.ErrorAs(t, skillfile.Validate(skill, registry), &gerr)
		assert.Contains(t, gerr.Reason, "terminal")
	})

	t.Run("duplicate block id", func(t *testing.T) {
		skill := parse(t, `package: p
start: a
blocks:
  - id: a
    component: terminal
  - id: a
    component: terminal
`)
		var gerr *domain.GraphError
		require.ErrorAs(t, skillfile.Validate(skill, registry), &gerr)
		assert.Equal(t, "duplicate block id", gerr.Reason)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registration.yml"), []byte(registrationYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	skills, err := skillfile.LoadDir(dir, block.Default())
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "com.acme.registration", skills[0].Package)
}

func TestLoadDirShippedCatalog(t *testing.T) {
	// The example catalog must always load against the default
	// registry; a component or property contract change that breaks it
	// fails here instead of at espalier startup.
	skills, err := skillfile.LoadDir(filepath.Join("..", "..", "..", "examples", "skills"), block.Default())
	require.NoError(t, err)
	require.NotEmpty(t, skills)

	packages := make(map[string]bool, len(skills))
	for _, skill := range skills {
		packages[skill.Package] = true
	}
	assert.True(t, packages["com.example.registration"])
	assert.True(t, packages["com.example.lunch"])
	assert.True(t, packages["com.example.feedback"])
}

func TestLoadDirDuplicatePackage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yml"), []byte(registrationYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yml"), []byte(registrationYAML), 0o644))

	_, err := skillfile.LoadDir(dir, block.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := skillfile.Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
