package portal

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// FieldKind is the kind of a form field.
type FieldKind int

// Field kinds.
const (
	KindOpaque FieldKind = iota
	KindUsername
	KindPassword

	// KindSubmit is the submit button that is clicked to send the form
	KindSubmit
)

// String returns the field kind as string.
func (k FieldKind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindUsername:
		return "username"
	case KindPassword:
		return "password"
	case KindSubmit:
		return "submit"
	}
	return ""
}

// FormField is a named field of a form with its default value.
type FormField struct {
	Name  string
	Kind  FieldKind
	Value string
}

// Form is a form in a HTML document.
type Form struct {
	Action string
	Method string
	Fields []FormField
}

// skippedInputTypes are input types that are not submitted as form fields.
var skippedInputTypes = map[string]bool{
	"reset":  true,
	"button": true,
	"file":   true,
}

// submitInputTypes are input types of submit buttons. Only the button that
// is clicked is submitted, this is the first named one of a form.
var submitInputTypes = map[string]bool{
	"submit": true,
	"image":  true,
}

// attrs returns the attributes of token as map with lower case keys.
func attrs(t html.Token) map[string]string {
	m := make(map[string]string, len(t.Attr))
	for _, a := range t.Attr {
		key := strings.ToLower(a.Key)
		if _, ok := m[key]; ok {
			// first attribute wins
			continue
		}
		m[key] = a.Val
	}
	return m
}

// inputField returns the form field of an input element and whether it is
// submitted.
func inputField(a map[string]string) (FormField, bool) {
	name := a["name"]
	if name == "" {
		return FormField{}, false
	}
	typ := strings.ToLower(strings.TrimSpace(a["type"]))
	if skippedInputTypes[typ] {
		return FormField{}, false
	}

	value, hasValue := a["value"]
	if submitInputTypes[typ] {
		return FormField{Name: name, Kind: KindSubmit, Value: value}, true
	}
	switch typ {
	case "password":
		return FormField{Name: name, Kind: KindPassword, Value: value}, true
	case "checkbox", "radio":
		if _, checked := a["checked"]; !checked {
			return FormField{}, false
		}
		if !hasValue {
			value = "on"
		}
	}
	return FormField{Name: name, Kind: KindOpaque, Value: value}, true
}

// formParser collects the forms of a document.
type formParser struct {
	forms   []*Form
	current *Form

	// submitted is set once the clicked submit button of the current form
	// is added
	submitted bool

	// select element state
	selectName     string
	inSelect       bool
	selectValue    string
	selectHasValue bool
	selectChosen   bool

	// option element state
	inOption       bool
	optionValue    string
	optionHasValue bool
	optionSelected bool
	optionText     strings.Builder

	// textarea element state
	textareaName string
	inTextarea   bool
	textareaText strings.Builder
}

// addField adds field to the current form.
func (p *formParser) addField(f FormField) {
	if p.current == nil {
		return
	}
	p.current.Fields = append(p.current.Fields, f)
}

// endOption finishes the current option element. The first option is the
// default value of the select element, the first selected option overrides
// it.
func (p *formParser) endOption() {
	if !p.inOption {
		return
	}
	p.inOption = false
	value := p.optionValue
	if !p.optionHasValue {
		value = strings.TrimSpace(p.optionText.String())
	}
	if !p.selectHasValue {
		p.selectValue = value
		p.selectHasValue = true
	}
	if p.optionSelected && !p.selectChosen {
		p.selectValue = value
		p.selectChosen = true
	}
}

// startTag handles start and self closing tags.
func (p *formParser) startTag(t html.Token) {
	a := attrs(t)
	switch t.Data {
	case "form":
		if p.current != nil {
			// nested forms are ignored like browsers do
			return
		}
		p.submitted = false
		p.current = &Form{
			Action: strings.TrimSpace(a["action"]),
			Method: strings.ToUpper(strings.TrimSpace(a["method"])),
		}
		p.forms = append(p.forms, p.current)

	case "input":
		f, ok := inputField(a)
		if !ok {
			return
		}
		if f.Kind == KindSubmit {
			if p.submitted || p.current == nil {
				return
			}
			p.submitted = true
		}
		p.addField(f)

	case "select":
		p.inSelect = true
		p.selectName = a["name"]
		p.selectValue = ""
		p.selectHasValue = false
		p.selectChosen = false

	case "option":
		if !p.inSelect {
			return
		}
		p.endOption()
		p.inOption = true
		p.optionValue, p.optionHasValue = a["value"]
		_, p.optionSelected = a["selected"]
		p.optionText.Reset()

	case "textarea":
		p.inTextarea = true
		p.textareaName = a["name"]
		p.textareaText.Reset()
	}
}

// endTag handles end tags.
func (p *formParser) endTag(t html.Token) {
	switch t.Data {
	case "form":
		p.current = nil

	case "option":
		p.endOption()

	case "select":
		p.endOption()
		if p.inSelect && p.selectName != "" && p.selectHasValue {
			p.addField(FormField{Name: p.selectName, Value: p.selectValue})
		}
		p.inSelect = false

	case "textarea":
		if p.inTextarea && p.textareaName != "" {
			p.addField(FormField{
				Name:  p.textareaName,
				Value: p.textareaText.String(),
			})
		}
		p.inTextarea = false
	}
}

// text handles text tokens.
func (p *formParser) text(t html.Token) {
	switch {
	case p.inTextarea:
		p.textareaText.WriteString(t.Data)
	case p.inOption:
		p.optionText.WriteString(t.Data)
	}
}

// ParseForms returns all forms in the HTML document in document order.
func ParseForms(r io.Reader) ([]*Form, error) {
	p := &formParser{}
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return p.forms, nil
			}
			return p.forms, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			p.startTag(z.Token())
		case html.EndTagToken:
			p.endTag(z.Token())
		case html.TextToken:
			p.text(z.Token())
		}
	}
}
