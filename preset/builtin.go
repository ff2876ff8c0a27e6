package preset

import "time"

// SafeID is the conservative built-in preset.
const SafeID = "safe"

// standardRules is the full rule catalogue with its stock enabled state.
var standardRules = []Rule{
	{Name: "removeDoctype", Enabled: true},
	{Name: "removeXMLProcInst", Enabled: true},
	{Name: "removeComments", Enabled: true},
	{Name: "removeMetadata", Enabled: true},
	{Name: "removeEditorsNSData", Enabled: true},
	{Name: "cleanupAttrs", Enabled: true},
	{Name: "mergeStyles", Enabled: true},
	{Name: "inlineStyles", Enabled: true},
	{Name: "minifyStyles", Enabled: true},
	{Name: "cleanupIds", Enabled: true},
	{Name: "removeUselessDefs", Enabled: true},
	{Name: "cleanupNumericValues", Enabled: true},
	{Name: "convertColors", Enabled: true},
	{Name: "removeUnknownsAndDefaults", Enabled: true},
	{Name: "removeNonInheritableGroupAttrs", Enabled: true},
	{Name: "removeUselessStrokeAndFill", Enabled: true},
	{Name: "removeViewBox", Enabled: false},
	{Name: "cleanupEnableBackground", Enabled: true},
	{Name: "removeHiddenElems", Enabled: true},
	{Name: "removeEmptyText", Enabled: true},
	{Name: "convertShapeToPath", Enabled: true},
	{Name: "convertEllipseToCircle", Enabled: true},
	{Name: "moveElemsAttrsToGroup", Enabled: true},
	{Name: "moveGroupAttrsToElems", Enabled: true},
	{Name: "collapseGroups", Enabled: true},
	{Name: "convertPathData", Enabled: true},
	{Name: "convertTransform", Enabled: true},
	{Name: "removeEmptyAttrs", Enabled: true},
	{Name: "removeEmptyContainers", Enabled: true},
	{Name: "mergePaths", Enabled: true},
	{Name: "removeUnusedNS", Enabled: true},
	{Name: "sortAttrs", Enabled: false},
	{Name: "sortDefsChildren", Enabled: true},
	{Name: "removeTitle", Enabled: false},
	{Name: "removeDesc", Enabled: true},
	{Name: "removeOffCanvasPaths", Enabled: false},
	{Name: "reusePaths", Enabled: false},
	{Name: "removeStyleElement", Enabled: false},
	{Name: "removeScriptElement", Enabled: false},
	{Name: "removeDimensions", Enabled: false},
	{Name: "removeXMLNS", Enabled: false},
}

// safeRules are the passes that never change rendering.
var safeRules = map[string]bool{
	"removeDoctype":       true,
	"removeXMLProcInst":   true,
	"removeComments":      true,
	"removeMetadata":      true,
	"removeEditorsNSData": true,
	"cleanupAttrs":        true,
}

type builtin struct {
	id, name, description, icon string
	rules                       func() []Rule
}

var builtins = []builtin{
	{
		id:          DefaultID,
		name:        "Default",
		description: "Balanced optimization suitable for most graphics",
		icon:        "i-hugeicons-tick-02",
		rules:       StandardRules,
	},
	{
		id:          SafeID,
		name:        "Safe",
		description: "Conservative cleanup that keeps every attribute that could matter",
		icon:        "i-hugeicons-security-check",
		rules: func() []Rule {
			rs := StandardRules()
			for i := range rs {
				rs[i].Enabled = safeRules[rs[i].Name]
			}
			return rs
		},
	},
}

// StandardRules returns a fresh copy of the rule catalogue.
func StandardRules() []Rule {
	out := make([]Rule, len(standardRules))
	copy(out, standardRules)
	return out
}

// Builtins materializes the built-in presets. Earlier table entries get the
// later timestamps so the table order survives a newest-first sort.
func Builtins(now time.Time) []Preset {
	ms := now.UnixMilli()
	out := make([]Preset, len(builtins))
	for i, b := range builtins {
		ts := ms - int64(i)*1000
		out[i] = Preset{
			ID:          b.id,
			Name:        b.name,
			Description: b.description,
			Icon:        b.icon,
			Config: &Config{
				Rules:              b.rules(),
				Multipass:          true,
				FloatPrecision:     defaultFloatPrecision,
				TransformPrecision: defaultTransformPrecision,
			},
			IsDefault: true,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
	}
	return out
}

// IsBuiltinID reports whether id names a built-in preset.
func IsBuiltinID(id string) bool {
	for _, b := range builtins {
		if b.id == id {
			return true
		}
	}
	return false
}
