package model

// Directive is a structured instruction embedded in LLM output asking for a tool call
type Directive struct {
	Tool string
	Args map[string]string
}

// Arg returns the argument value or fallback when the key is absent
func (d *Directive) Arg(key, fallback string) string {
	if d == nil {
		return fallback
	}
	if v, ok := d.Args[key]; ok {
		return v
	}
	return fallback
}
