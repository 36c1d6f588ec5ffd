package catalog

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Limits of the product form
const (
	MaxImages     = 10
	MaxImageBytes = 5 << 20
	MaxPrice      = 100000
	MaxWeight     = 10000
	MaxDimension  = 1000
)

// ValidationError carries all messages collected while validating a product
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Number is a numeric form value. It unmarshals from JSON numbers as well as
// from strings, so that plain form posts keep their original text. A comma is
// accepted as decimal separator.
type Number string

// UnmarshalJSON is a custom JSON unmarshaller
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	*n = Number(data)
	return nil
}

// MarshalJSON is a custom JSON marshaller. Valid numbers marshal as JSON numbers.
func (n Number) MarshalJSON() ([]byte, error) {
	if v, ok := n.Float(); ok {
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	}
	if n.empty() {
		return []byte("null"), nil
	}
	return json.Marshal(string(n))
}

func (n Number) empty() bool {
	return strings.TrimSpace(string(n)) == ""
}

// Float returns the numeric value and whether the text is a finite number
func (n Number) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(string(n)), ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// decimals returns the number of decimal places of v in its shortest representation
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// ProductInput is the product form as posted by the admin panel
type ProductInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          Number   `json:"price"`
	Category       string   `json:"category"`
	Dimensions     string   `json:"dimensions"`
	Material       string   `json:"material"`
	Colors         []string `json:"colors"`
	Weight         Number   `json:"weight"`
	PrintTime      string   `json:"print_time"`
	Specifications string   `json:"specifications"`
	Images         []string `json:"images"`
}

// Validation is the outcome of validating a product form
type Validation struct {
	Valid      bool        `json:"valid"`
	Errors     []string    `json:"errors"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

func length(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Validate checks the form against the business rules and collects all
// violations. Parsed dimensions are returned for preview.
func (in ProductInput) Validate() Validation {
	var errs []string
	add := func(msg string) { errs = append(errs, msg) }

	switch name := strings.TrimSpace(in.Name); {
	case name == "":
		add("O nome do produto é obrigatório")
	case length(name) < 3:
		add("O nome deve ter pelo menos 3 caracteres")
	case length(name) > 100:
		add("O nome deve ter no máximo 100 caracteres")
	case digitsOnly.MatchString(name):
		add("O nome não pode conter apenas números")
	}

	switch n := length(in.Description); {
	case n == 0:
		add("A descrição do produto é obrigatória")
	case n < 10:
		add("A descrição deve ter pelo menos 10 caracteres")
	case n > 1000:
		add("A descrição deve ter no máximo 1000 caracteres")
	}

	if in.Price.empty() {
		add("O preço do produto é obrigatório")
	} else if price, ok := in.Price.Float(); !ok {
		add("O preço deve ser um número válido")
	} else if price <= 0 {
		add("O preço deve ser maior que zero")
	} else if price > MaxPrice {
		add("O preço máximo é R$ 100.000,00")
	} else if decimals(price) > 2 {
		add("O preço deve ter no máximo 2 casas decimais")
	}

	if category := strings.TrimSpace(in.Category); category == "" {
		add("A categoria do produto é obrigatória")
	} else if !IsCategory(in.Category) {
		add("Selecione uma categoria válida")
	}

	var dimensions *Dimensions
	if length(in.Dimensions) > 0 {
		d, err := ParseDimensions(in.Dimensions)
		if err != nil {
			add(err.Error())
		} else if length(in.Dimensions) > 50 {
			add("As dimensões devem ter no máximo 50 caracteres")
		} else {
			dimensions = &d
		}
	}

	switch n := length(in.Material); {
	case n == 0:
		add("O material do produto é obrigatório")
	case n > 100:
		add("O material deve ter no máximo 100 caracteres")
	}

	if len(in.Colors) == 0 {
		add("Selecione pelo menos uma cor disponível")
	}

	if in.Weight.empty() {
		add("O peso do produto é obrigatório")
	} else if weight, ok := in.Weight.Float(); !ok {
		add("O peso deve ser um número válido")
	} else if weight <= 0 {
		add("O peso deve ser maior que zero")
	} else if weight > MaxWeight {
		add("O peso máximo é 10.000g (10kg)")
	} else if decimals(weight) > 1 {
		add("O peso deve ter no máximo 1 casa decimal")
	}

	switch n := length(in.PrintTime); {
	case n == 0:
		add("O tempo de impressão é obrigatório")
	case n > 50:
		add("O tempo de impressão deve ter no máximo 50 caracteres")
	}

	if length(in.Specifications) > 2000 {
		add("As especificações técnicas devem ter no máximo 2000 caracteres")
	}

	if len(in.Images) > MaxImages {
		add("Máximo de 10 imagens por produto")
	}

	return Validation{Valid: len(errs) == 0, Errors: errs, Dimensions: dimensions}
}

// product returns the normalised product of a valid form
func (in ProductInput) product(dimensions *Dimensions) Product {
	price, _ := in.Price.Float()
	p := Product{
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		Price:          price,
		Category:       in.Category,
		Material:       strings.TrimSpace(in.Material),
		Colors:         in.Colors,
		PrintTime:      strings.TrimSpace(in.PrintTime),
		Specifications: strings.TrimSpace(in.Specifications),
		Images:         in.Images,
	}
	if dimensions != nil {
		p.Dimensions = dimensions.Formatted
	}
	if weight, ok := in.Weight.Float(); ok {
		p.Weight = &weight
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

// Dimensions are parsed product dimensions
type Dimensions struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Depth     float64 `json:"depth"`
	Unit      string  `json:"unit"`
	Formatted string  `json:"formatted"`
}

var dimensionsPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*[x×,]\s*(\d+(?:\.\d+)?)\s*[x×,]\s*(\d+(?:\.\d+)?)(?:\s*(cm|mm|m|in|"|''))?$`)

var (
	errDimensionsFormat   = errors.New("Formato inválido. Use: Largura x Altura x Profundidade (ex: 10x15x5 cm)")
	errDimensionsPositive = errors.New("As dimensões devem ser valores positivos maiores que zero")
	errDimensionsTooLarge = errors.New("As dimensões são muito grandes. Máximo: 1000cm (10m)")
)

// ParseDimensions parses "W x H x D [unit]". Separators are x, × or a comma,
// the unit defaults to cm.
func ParseDimensions(s string) (Dimensions, error) {
	m := dimensionsPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Dimensions{}, errDimensionsFormat
	}
	var values [3]float64
	for i := range values {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return Dimensions{}, errDimensionsFormat
		}
		values[i] = v
	}
	d := Dimensions{Width: values[0], Height: values[1], Depth: values[2], Unit: m[4]}
	if d.Unit == "" {
		d.Unit = "cm"
	}
	for _, v := range values {
		if v <= 0 {
			return Dimensions{}, errDimensionsPositive
		}
	}
	for _, v := range values {
		if v > MaxDimension {
			return Dimensions{}, errDimensionsTooLarge
		}
	}
	d.Formatted = fmt.Sprintf("%s × %s × %s %s", formatNumber(d.Width), formatNumber(d.Height), formatNumber(d.Depth), d.Unit)
	return d, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Upload is an image file to be stored for a product
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

var imageContentType = regexp.MustCompile(`^image/(jpeg|jpg|png|gif|webp)$`)

// ValidateUploads checks a batch of image uploads for a product which already
// has existing images. Files are numbered from 1 in the messages.
func ValidateUploads(existing int, uploads []Upload) []string {
	var errs []string
	if existing+len(uploads) > MaxImages {
		errs = append(errs, "Máximo de 10 imagens por produto")
	}
	for i, u := range uploads {
		if u.Size > MaxImageBytes {
			errs = append(errs, fmt.Sprintf("Imagem %d excede 5MB: %s", i+1, u.Name))
		}
		if !imageContentType.MatchString(u.ContentType) {
			errs = append(errs, fmt.Sprintf("Formato inválido para imagem %d: %s. Use JPG, PNG ou GIF", i+1, u.Name))
		}
	}
	return errs
}
