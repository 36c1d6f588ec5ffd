package catalog

// Color is a named filament color
type Color struct {
	Name    string  `json:"name"`
	Hex     string  `json:"hex"`
	Opacity float64 `json:"opacity,omitempty"`
}

// Palette is the list of colors offered in the admin panel
var Palette = []Color{
	{Name: "Branco", Hex: "#FFFFFF"},
	{Name: "Preto", Hex: "#000000"},
	{Name: "Cinza", Hex: "#808080"},
	{Name: "Prata", Hex: "#C0C0C0"},
	{Name: "Vermelho", Hex: "#FF0000"},
	{Name: "Vermelho Escuro", Hex: "#8B0000"},
	{Name: "Vermelho Claro", Hex: "#FF6B6B"},
	{Name: "Azul", Hex: "#0000FF"},
	{Name: "Azul Marinho", Hex: "#000080"},
	{Name: "Azul Claro", Hex: "#ADD8E6"},
	{Name: "Azul Turquesa", Hex: "#40E0D0"},
	{Name: "Verde", Hex: "#008000"},
	{Name: "Verde Limão", Hex: "#32CD32"},
	{Name: "Verde Claro", Hex: "#90EE90"},
	{Name: "Verde Escuro", Hex: "#006400"},
	{Name: "Amarelo", Hex: "#FFFF00"},
	{Name: "Amarelo Ouro", Hex: "#FFD700"},
	{Name: "Laranja", Hex: "#FFA500"},
	{Name: "Rosa", Hex: "#FFC0CB"},
	{Name: "Rosa Choque", Hex: "#FF1493"},
	{Name: "Roxo", Hex: "#800080"},
	{Name: "Roxo Claro", Hex: "#9370DB"},
	{Name: "Violeta", Hex: "#EE82EE"},
	{Name: "Marrom", Hex: "#8B4513"},
	{Name: "Marrom Claro", Hex: "#D2691E"},
	{Name: "Bege", Hex: "#F5F5DC"},
	{Name: "Dourado", Hex: "#FFD700"},
	{Name: "Prata Metálico", Hex: "#A6A6A6"},
	{Name: "Bronze", Hex: "#CD7F32"},
	{Name: "Cobre", Hex: "#B87333"},
	{Name: "Transparente", Hex: "#FFFFFF", Opacity: 0.3},
	{Name: "Fosco Branco", Hex: "#F5F5F5"},
	{Name: "Fosco Preto", Hex: "#1A1A1A"},
	{Name: "Neon Rosa", Hex: "#FF6EC7"},
	{Name: "Neon Verde", Hex: "#39FF14"},
	{Name: "Neon Azul", Hex: "#00FFFF"},
	{Name: "Neon Amarelo", Hex: "#FFFF33"},
}

const (
	unknownColorHex      = "#cccccc"
	unknownAdminColorHex = "#e0e0e0"
	transparentHex       = "#F0F0F0"
)

var paletteByName = func() map[string]Color {
	m := make(map[string]Color, len(Palette))
	for _, c := range Palette {
		m[c.Name] = c
	}
	return m
}()

// ColorHex returns the storefront swatch color for a color name.
// Transparente shows as a light gray, unknown names as #cccccc.
func ColorHex(name string) string {
	c, ok := paletteByName[name]
	switch {
	case !ok:
		return unknownColorHex
	case c.Opacity != 0:
		return transparentHex
	}
	return c.Hex
}

// AdminColor returns the admin palette entry for a color name. Unknown names
// get a neutral swatch.
func AdminColor(name string) Color {
	if c, ok := paletteByName[name]; ok {
		return c
	}
	return Color{Name: name, Hex: unknownAdminColorHex}
}
