package paciente

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

var formatos = map[string]*regexp.Regexp{
	"CI":  regexp.MustCompile(`^\d{3}-?\d{6}-?\d{4}[A-Z]$`),
	"PSP": regexp.MustCompile(`^[A-Z0-9]{6,20}$`),
	"NSS": regexp.MustCompile(`^\d{6,15}$`),
	"LC":  regexp.MustCompile(`^[A-Z0-9-]{5,20}$`),
}

// TiposIdentificacion lists the accepted identity documents.
var TiposIdentificacion = []string{"CI", "PSP", "NSS", "LC"}

// NormalizarIdentificacion upper-cases the number and checks it against the
// format of its document type.
func NormalizarIdentificacion(tipo, numero string) (string, error) {
	tipo = strings.ToUpper(strings.TrimSpace(tipo))
	numero = strings.ToUpper(strings.TrimSpace(numero))
	re, ok := formatos[tipo]
	if !ok || !re.MatchString(numero) {
		return "", apperr.Validationf("numero_identificacion inválido para tipo %s", tipo)
	}
	return numero, nil
}

// conectores are skipped when taking initials.
var conectores = map[string]bool{
	"DE": true, "DEL": true, "LA": true, "LOS": true, "LAS": true,
	"DA": true, "DO": true, "DOS": true, "DAS": true,
}

func stripAccents(s string) string {
	// transformers keep state, so each call gets its own chain
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return plain
}

// tokens returns the upper-cased, accent-free words of s without connectors.
func tokens(s string) []string {
	words := strings.FieldsFunc(strings.ToUpper(stripAccents(s)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := words[:0]
	for _, w := range words {
		if !conectores[w] {
			out = append(out, w)
		}
	}
	return out
}

func initials(s string) string {
	t := tokens(s)
	var b strings.Builder
	for i := 0; i < 2; i++ {
		if i < len(t) {
			b.WriteRune([]rune(t[i])[0])
		} else {
			b.WriteByte('9')
		}
	}
	return b.String()
}

// Iniciales takes the first letter of the first two given names and of the
// first two surnames. A missing part counts as 9.
func Iniciales(nombres, apellidos string) string {
	return initials(nombres) + initials(apellidos)
}

// MaxCC is the last sequence number tried before giving up.
const MaxCC = 99

var errCCAgotado = apperr.BadRequest("CC agotado")

// Expediente holds the inputs of a codigo_expediente.
type Expediente struct {
	Municipio string
	Nombres   string
	Apellidos string
	Sexo      string
	FechaNac  time.Time
}

// Base renders MMM IIII S DDMMAA, the code without its sequence number.
func (e Expediente) Base() string {
	sexo := "F"
	if strings.EqualFold(strings.TrimSpace(e.Sexo), "M") {
		sexo = "M"
	}
	return strings.TrimSpace(e.Municipio) + Iniciales(e.Nombres, e.Apellidos) + sexo + e.FechaNac.Format("020106")
}

// Codigo appends the two digit sequence number to the base.
func (e Expediente) Codigo(cc int) string {
	return fmt.Sprintf("%s%02d", e.Base(), cc)
}
