package interaction

import "doc-markup/internal/annotation"

// Tool is one palette entry.
type Tool struct {
	Variant annotation.Variant `json:"variant"`
	Label   string             `json:"label"`
	Active  bool               `json:"active"`
}

var toolLabels = map[annotation.Variant]string{
	annotation.VariantImageStamp:      "Stamp",
	annotation.VariantHighlightArea:   "Highlight",
	annotation.VariantSignature:       "Signature",
	annotation.VariantDateTimeStamp:   "Date/Time",
	annotation.VariantTextArea:        "Text",
	annotation.VariantImageAttachment: "Attach Image",
}

// Palette is the tool bar: the only external trigger for arming tools.
type Palette struct {
	ctrl  *Controller
	store annotation.Store
}

func NewPalette(ctrl *Controller, store annotation.Store) *Palette {
	return &Palette{ctrl: ctrl, store: store}
}

// Tools lists the six tools in palette order, flagging the armed one.
func (p *Palette) Tools() []Tool {
	active := p.Active()
	out := make([]Tool, 0, len(annotation.Variants))
	for _, v := range annotation.Variants {
		out = append(out, Tool{
			Variant: v,
			Label:   toolLabels[v],
			Active:  active != nil && *active == v,
		})
	}
	return out
}

// Toggle arms v, or disarms it when already armed.
func (p *Palette) Toggle(v annotation.Variant) {
	p.ctrl.ArmTool(v)
}

func (p *Palette) Active() *annotation.Variant {
	return p.store.State().ActiveTool
}

func (p *Palette) Collapsed() bool {
	return p.store.State().ToolbarCollapsed
}

func (p *Palette) SetCollapsed(collapsed bool) {
	p.store.SetToolbarCollapsed(collapsed)
}

func (p *Palette) ToggleCollapsed() {
	p.store.SetToolbarCollapsed(!p.Collapsed())
}
