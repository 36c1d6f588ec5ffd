package catalog

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProductInput {
	return ProductInput{
		Name:        "Vaso Geométrico",
		Description: "Vaso decorativo impresso em PLA com padrão geométrico.",
		Price:       "49.9",
		Category:    "decoracao",
		Dimensions:  "10x15x5",
		Material:    "PLA",
		Colors:      []string{"Branco", "Preto"},
		Weight:      "120.5",
		PrintTime:   "4 horas",
	}
}

func TestValidInput(t *testing.T) {
	v := validInput().Validate()
	assert.True(t, v.Valid, v.Errors)
	require.NotNil(t, v.Dimensions)
	assert.Equal(t, "10 × 15 × 5 cm", v.Dimensions.Formatted)

	p := validInput().product(v.Dimensions)
	assert.Equal(t, 49.9, p.Price)
	require.NotNil(t, p.Weight)
	assert.Equal(t, 120.5, *p.Weight)
	assert.Equal(t, "10 × 15 × 5 cm", p.Dimensions)
	assert.Equal(t, []string{}, p.Images)
}

func TestValidationMessages(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *ProductInput)
		want   string
	}{
		{"missing name", func(in *ProductInput) { in.Name = "   " }, "O nome do produto é obrigatório"},
		{"short name", func(in *ProductInput) { in.Name = " ab " }, "O nome deve ter pelo menos 3 caracteres"},
		{"long name", func(in *ProductInput) { in.Name = strings.Repeat("a", 101) }, "O nome deve ter no máximo 100 caracteres"},
		{"numeric name", func(in *ProductInput) { in.Name = "12345" }, "O nome não pode conter apenas números"},
		{"missing description", func(in *ProductInput) { in.Description = "" }, "A descrição do produto é obrigatória"},
		{"short description", func(in *ProductInput) { in.Description = "curta" }, "A descrição deve ter pelo menos 10 caracteres"},
		{"long description", func(in *ProductInput) { in.Description = strings.Repeat("d", 1001) }, "A descrição deve ter no máximo 1000 caracteres"},
		{"missing price", func(in *ProductInput) { in.Price = "" }, "O preço do produto é obrigatório"},
		{"invalid price", func(in *ProductInput) { in.Price = "abc" }, "O preço deve ser um número válido"},
		{"zero price", func(in *ProductInput) { in.Price = "0" }, "O preço deve ser maior que zero"},
		{"expensive", func(in *ProductInput) { in.Price = "100000.01" }, "O preço máximo é R$ 100.000,00"},
		{"price decimals", func(in *ProductInput) { in.Price = "10.123" }, "O preço deve ter no máximo 2 casas decimais"},
		{"missing category", func(in *ProductInput) { in.Category = "" }, "A categoria do produto é obrigatória"},
		{"unknown category", func(in *ProductInput) { in.Category = "comida" }, "Selecione uma categoria válida"},
		{"bad dimensions", func(in *ProductInput) { in.Dimensions = "10 por 15" }, "Formato inválido. Use: Largura x Altura x Profundidade (ex: 10x15x5 cm)"},
		{"zero dimension", func(in *ProductInput) { in.Dimensions = "0x15x5" }, "As dimensões devem ser valores positivos maiores que zero"},
		{"huge dimension", func(in *ProductInput) { in.Dimensions = "1001x15x5" }, "As dimensões são muito grandes. Máximo: 1000cm (10m)"},
		{"long dimensions", func(in *ProductInput) {
			in.Dimensions = "10.00000000000000000000 x 15.0000000000000000000 x 5 cm"
		}, "As dimensões devem ter no máximo 50 caracteres"},
		{"missing material", func(in *ProductInput) { in.Material = "" }, "O material do produto é obrigatório"},
		{"long material", func(in *ProductInput) { in.Material = strings.Repeat("m", 101) }, "O material deve ter no máximo 100 caracteres"},
		{"no colors", func(in *ProductInput) { in.Colors = nil }, "Selecione pelo menos uma cor disponível"},
		{"missing weight", func(in *ProductInput) { in.Weight = "" }, "O peso do produto é obrigatório"},
		{"invalid weight", func(in *ProductInput) { in.Weight = "pesado" }, "O peso deve ser um número válido"},
		{"negative weight", func(in *ProductInput) { in.Weight = "-1" }, "O peso deve ser maior que zero"},
		{"heavy", func(in *ProductInput) { in.Weight = "10001" }, "O peso máximo é 10.000g (10kg)"},
		{"weight decimals", func(in *ProductInput) { in.Weight = "1.25" }, "O peso deve ter no máximo 1 casa decimal"},
		{"missing print time", func(in *ProductInput) { in.PrintTime = " " }, "O tempo de impressão é obrigatório"},
		{"long print time", func(in *ProductInput) { in.PrintTime = strings.Repeat("h", 51) }, "O tempo de impressão deve ter no máximo 50 caracteres"},
		{"long specifications", func(in *ProductInput) { in.Specifications = strings.Repeat("s", 2001) }, "As especificações técnicas devem ter no máximo 2000 caracteres"},
		{"too many images", func(in *ProductInput) { in.Images = make([]string, 11) }, "Máximo de 10 imagens por produto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.modify(&in)
			v := in.Validate()
			assert.False(t, v.Valid)
			assert.Equal(t, []string{tt.want}, v.Errors)
		})
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	v := ProductInput{}.Validate()
	assert.False(t, v.Valid)
	assert.Equal(t, []string{
		"O nome do produto é obrigatório",
		"A descrição do produto é obrigatória",
		"O preço do produto é obrigatório",
		"A categoria do produto é obrigatória",
		"O material do produto é obrigatório",
		"Selecione pelo menos uma cor disponível",
		"O peso do produto é obrigatório",
		"O tempo de impressão é obrigatório",
	}, v.Errors)
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10x15x5", "10 × 15 × 5 cm"},
		{"10 x 15 x 5 cm", "10 × 15 × 5 cm"},
		{"10X15X5 mm", "10 × 15 × 5 mm"},
		{"10,15,5", "10 × 15 × 5 cm"},
		{"10.5 × 15.25 × 5 m", "10.5 × 15.25 × 5 m"},
		{"2x3x4 in", "2 × 3 × 4 in"},
		{`2x3x4"`, `2 × 3 × 4 "`},
		{" 7x8x9 CM ", "7 × 8 × 9 CM"},
	}
	for _, tt := range tests {
		d, err := ParseDimensions(tt.in)
		if assert.NoError(t, err, tt.in) {
			assert.Equal(t, tt.want, d.Formatted, tt.in)
		}
	}

	for _, bad := range []string{"10x15", "10x15x5 km", "axbxc", "10;15;5"} {
		_, err := ParseDimensions(bad)
		assert.Equal(t, errDimensionsFormat, err, bad)
	}
}

func TestNumberUnmarshal(t *testing.T) {
	var in struct {
		Price  Number `json:"price"`
		Weight Number `json:"weight"`
		Other  Number `json:"other"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.5, "weight": "3,5", "other": null}`), &in))
	price, ok := in.Price.Float()
	assert.True(t, ok)
	assert.Equal(t, 12.5, price)
	weight, ok := in.Weight.Float()
	assert.True(t, ok)
	assert.Equal(t, 3.5, weight)
	assert.True(t, in.Other.empty())

	_, ok = Number("NaN").Float()
	assert.False(t, ok)

	out, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 12.5, "weight": 3.5, "other": null}`, string(out))
}

func TestValidateUploads(t *testing.T) {
	uploads := []Upload{
		{Name: "ok.png", ContentType: "image/png", Size: 1024},
		{Name: "big.jpg", ContentType: "image/jpeg", Size: MaxImageBytes + 1},
		{Name: "doc.pdf", ContentType: "application/pdf", Size: 10},
		{Name: "anim.webp", ContentType: "image/webp", Size: 10},
	}
	assert.Equal(t, []string{
		"Imagem 2 excede 5MB: big.jpg",
		"Formato inválido para imagem 3: doc.pdf. Use JPG, PNG ou GIF",
	}, ValidateUploads(0, uploads))

	assert.Equal(t, []string{"Máximo de 10 imagens por produto"}, ValidateUploads(10, uploads[:1]))
	assert.Empty(t, ValidateUploads(9, uploads[:1]))
}
