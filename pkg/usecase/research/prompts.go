package research

import (
	"bytes"
	_ "embed"
	"os"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed prompt/planner.md
var plannerPromptRaw string

//go:embed prompt/researcher.md
var researcherPromptRaw string

//go:embed prompt/writer.md
var writerPromptRaw string

//go:embed prompt/critic.md
var criticPromptRaw string

// Prompts holds the templates of the four pipeline stages
type Prompts struct {
	planner    *template.Template
	researcher *template.Template
	writer     *template.Template
	critic     *template.Template
}

// promptFile is the YAML layout accepted by LoadPrompts. Empty fields keep the built-in template.
type promptFile struct {
	Planner    string `yaml:"planner"`
	Researcher string `yaml:"researcher"`
	Writer     string `yaml:"writer"`
	Critic     string `yaml:"critic"`
}

// DefaultPrompts returns the built-in templates
func DefaultPrompts() *Prompts {
	return &Prompts{
		planner:    template.Must(template.New("planner").Parse(plannerPromptRaw)),
		researcher: template.Must(template.New("researcher").Parse(researcherPromptRaw)),
		writer:     template.Must(template.New("writer").Parse(writerPromptRaw)),
		critic:     template.Must(template.New("critic").Parse(criticPromptRaw)),
	}
}

// LoadPrompts reads stage template overrides from a YAML file
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read prompt file", goerr.V("path", path))
	}

	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompt file", goerr.V("path", path))
	}

	return ParsePrompts(file.Planner, file.Researcher, file.Writer, file.Critic)
}

// ParsePrompts builds Prompts from raw templates, falling back to the built-in one for each empty argument
func ParsePrompts(planner, researcher, writer, critic string) (*Prompts, error) {
	p := DefaultPrompts()

	overrides := []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"planner", planner, &p.planner},
		{"researcher", researcher, &p.researcher},
		{"writer", writer, &p.writer},
		{"critic", critic, &p.critic},
	}

	for _, o := range overrides {
		if o.src == "" {
			continue
		}
		tmpl, err := template.New(o.name).Parse(o.src)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse prompt template", goerr.V("stage", o.name))
		}
		*o.dst = tmpl
	}

	return p, nil
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template", goerr.V("stage", tmpl.Name()))
	}
	return buf.String(), nil
}

func (p *Prompts) plan(topic, memoryContext string) (string, error) {
	return render(p.planner, map[string]any{
		"Topic":         topic,
		"MemoryContext": memoryContext,
	})
}

func (p *Prompts) research(topic, subtopic string) (string, error) {
	return render(p.researcher, map[string]any{
		"Topic":    topic,
		"Subtopic": subtopic,
	})
}

func (p *Prompts) write(topic, notes, tools string) (string, error) {
	return render(p.writer, map[string]any{
		"Topic": topic,
		"Notes": notes,
		"Tools": tools,
	})
}

func (p *Prompts) critique(topic, report string) (string, error) {
	return render(p.critic, map[string]any{
		"Topic":  topic,
		"Report": report,
	})
}
