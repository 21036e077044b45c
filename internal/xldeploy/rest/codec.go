package rest

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

var dateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

func readRoot(body []byte, expTag string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("could not parse XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty XML document")
	}
	if expTag != "" && root.Tag != expTag {
		return nil, fmt.Errorf("unexpected XML element %q, expected %q", root.Tag, expTag)
	}

	return root, nil
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid date %q", s)
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func decodeTask(body []byte) (*model.Task, error) {
	root, err := readRoot(body, "task")
	if err != nil {
		return nil, err
	}

	current, err := parseInt(root.SelectAttrValue("currentStep", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid current step: %w", err)
	}
	total, err := parseInt(root.SelectAttrValue("totalSteps", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid total steps: %w", err)
	}
	start, err := parseDate(childText(root, "startDate"))
	if err != nil {
		return nil, err
	}
	completion, err := parseDate(childText(root, "completionDate"))
	if err != nil {
		return nil, err
	}

	return &model.Task{
		ID:             root.SelectAttrValue("id", ""),
		Description:    childText(root, "description"),
		State:          model.TaskState(root.SelectAttrValue("state", "")),
		CurrentStep:    current,
		NrSteps:        total,
		StartDate:      start,
		CompletionDate: completion,
	}, nil
}

func decodeStep(body []byte) (*model.Step, error) {
	root, err := readRoot(body, "step")
	if err != nil {
		return nil, err
	}

	step := &model.Step{
		Description: childText(root, "description"),
		State:       model.StepState(root.SelectAttrValue("state", "")),
	}
	if l := root.SelectElement("log"); l != nil {
		step.Log = l.Text()
	}

	return step, nil
}

// decodeCI decodes a configuration item element, the element tag is the CI type.
// Simple properties and references are kept by name, the validation messages
// attached by the server are decoded apart.
func decodeCI(el *etree.Element) model.ConfigurationItem {
	ci := model.ConfigurationItem{
		ID:         el.SelectAttrValue("id", ""),
		Type:       el.Tag,
		Properties: map[string]string{},
	}

	for _, child := range el.ChildElements() {
		switch {
		case child.Tag == "validation-messages":
			for _, m := range child.SelectElements("validation-message") {
				ci.Validations = append(ci.Validations, model.ValidationMessage{
					CIID:     m.SelectAttrValue("ci", ci.ID),
					Property: m.SelectAttrValue("property", ""),
					Level:    m.SelectAttrValue("level", ""),
					Message:  strings.TrimSpace(m.Text()),
				})
			}
		case child.SelectAttr("ref") != nil:
			ci.Properties[child.Tag] = child.SelectAttrValue("ref", "")
		case len(child.ChildElements()) == 0:
			ci.Properties[child.Tag] = strings.TrimSpace(child.Text())
		}
	}

	return ci
}

func decodeCIDocument(body []byte) (*model.ConfigurationItem, error) {
	root, err := readRoot(body, "")
	if err != nil {
		return nil, err
	}

	ci := decodeCI(root)
	if ci.ID == "" {
		return nil, fmt.Errorf("configuration item %q without id", ci.Type)
	}

	return &ci, nil
}

func decodeCIRefs(body []byte) ([]string, error) {
	root, err := readRoot(body, "list")
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, el := range root.ChildElements() {
		if ref := el.SelectAttrValue("ref", ""); ref != "" {
			ids = append(ids, ref)
		}
	}

	return ids, nil
}

func decodeDeployment(body []byte) (*model.Deployment, error) {
	root, err := readRoot(body, "deployment")
	if err != nil {
		return nil, err
	}

	d := &model.Deployment{
		ID:   root.SelectAttrValue("id", ""),
		Type: model.DeploymentType(root.SelectAttrValue("type", "")),
		Raw:  body,
	}

	if app := root.SelectElement("application"); app != nil {
		if children := app.ChildElements(); len(children) > 0 {
			deployedApp := children[0]
			if v := deployedApp.SelectElement("version"); v != nil {
				d.Version = v.SelectAttrValue("ref", "")
			}
			if e := deployedApp.SelectElement("environment"); e != nil {
				d.Target = e.SelectAttrValue("ref", "")
			}
		}
	}

	if deployeds := root.SelectElement("deployeds"); deployeds != nil {
		for _, el := range deployeds.ChildElements() {
			d.Deployeds = append(d.Deployeds, decodeCI(el))
		}
	}

	return d, nil
}

func decodeControl(body []byte) (*model.Control, error) {
	root, err := readRoot(body, "control")
	if err != nil {
		return nil, err
	}

	c := &model.Control{
		TaskName:   childText(root, "controlName"),
		Parameters: map[string]string{},
		Raw:        body,
	}
	if ci := root.SelectElement("configurationItem"); ci != nil {
		c.CIID = ci.SelectAttrValue("ref", "")
	}

	if params := controlParameters(root); params != nil {
		for _, p := range params.ChildElements() {
			c.Parameters[p.Tag] = strings.TrimSpace(p.Text())
		}
	}

	return c, nil
}

// controlParameters returns the element holding the control parameters, the
// parameters CI when the server sends one.
func controlParameters(root *etree.Element) *etree.Element {
	params := root.SelectElement("parameters")
	if params == nil {
		return nil
	}
	if children := params.ChildElements(); len(children) == 1 && children[0].SelectAttr("id") != nil {
		return children[0]
	}
	return params
}

// encodeControl returns the prepared control document with the parameters set.
func encodeControl(c model.Control) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(c.Raw); err != nil {
		return nil, fmt.Errorf("could not parse control: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "control" {
		return nil, fmt.Errorf("invalid control document")
	}

	if len(c.Parameters) > 0 {
		params := controlParameters(root)
		if params == nil {
			return nil, fmt.Errorf("control %q of %q takes no parameters", c.TaskName, c.CIID)
		}
		keys := make([]string, 0, len(c.Parameters))
		for key := range c.Parameters {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, name := range keys {
			p := params.SelectElement(name)
			if p == nil {
				p = params.CreateElement(name)
			}
			p.SetText(c.Parameters[name])
		}
	}

	return doc.WriteToBytes()
}

func encodeStepList(stepNrs []int) ([]byte, error) {
	doc := etree.NewDocument()
	list := doc.CreateElement("list")
	for _, nr := range stepNrs {
		list.CreateElement("integer").SetText(strconv.Itoa(nr))
	}
	return doc.WriteToBytes()
}

// decodeString decodes the plain or XML wrapped (`<string>id</string>`) string answers.
func decodeString(body []byte) string {
	s := strings.TrimSpace(string(body))
	if !strings.HasPrefix(s, "<") {
		return s
	}

	root, err := readRoot(body, "")
	if err != nil {
		return s
	}
	return strings.TrimSpace(root.Text())
}

func decodeBool(body []byte) (bool, error) {
	v := decodeString(body)
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q: %w", v, err)
	}
	return b, nil
}

func decodeDescriptorSuperTypes(body []byte) ([]string, error) {
	root, err := readRoot(body, "descriptor")
	if err != nil {
		return nil, err
	}

	var types []string
	if st := root.SelectElement("superTypes"); st != nil {
		for _, t := range st.SelectElements("type") {
			types = append(types, strings.TrimSpace(t.Text()))
		}
	}

	return types, nil
}

func decodeServerInfo(body []byte) (*model.ServerInfo, error) {
	root, err := readRoot(body, "server-info")
	if err != nil {
		return nil, err
	}

	info := &model.ServerInfo{
		Version: childText(root, "version"),
		Edition: childText(root, "edition"),
	}
	if plugins := root.SelectElement("plugins"); plugins != nil {
		for _, p := range plugins.SelectElements("plugin-info") {
			info.Plugins = append(info.Plugins, model.PluginInfo{
				Name:    childText(p, "name"),
				Version: childText(p, "version"),
			})
		}
	}

	return info, nil
}
