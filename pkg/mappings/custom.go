package mappings

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reubano/csv2ofx/pkg/models"
)

// A custom mapping file is declarative YAML: column references, constants,
// and ${Column} templates. Anything needing real code stays a builtin.
//
//	name: mybank
//	has_header: true
//	delimiter: ";"
//	fields:
//	  account: {const: My Checking}
//	  date:    {column: Booking Date}
//	  payee:   {template: "${Payee} ${Reference}"}
//	filter:
//	  - column: Status
//	    equals: booked
type mappingFile struct {
	Name      string               `yaml:"name"`
	HasHeader bool                 `yaml:"has_header"`
	IsSplit   bool                 `yaml:"is_split"`
	Delimiter string               `yaml:"delimiter"`
	DateFmt   string               `yaml:"date_fmt"`
	ParseFmt  string               `yaml:"parse_fmt"`
	FirstRow  int                  `yaml:"first_row"`
	LastRow   int                  `yaml:"last_row"`
	FirstCol  int                  `yaml:"first_col"`
	Fields    map[string]fieldSpec `yaml:"fields"`
	Filter    []filterSpec         `yaml:"filter"`
}

type fieldSpec struct {
	Column   string `yaml:"column"`
	Const    string `yaml:"const"`
	Template string `yaml:"template"`
}

type filterSpec struct {
	Column   string `yaml:"column"`
	Equals   string `yaml:"equals"`
	NotEmpty bool   `yaml:"not_empty"`
}

var templateRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func (s fieldSpec) fieldFunc() (FieldFunc, error) {
	switch {
	case s.Column != "":
		return Column(s.Column), nil
	case s.Template != "":
		tmpl := s.Template
		return func(rec models.Record) (string, error) {
			var missing error
			out := templateRef.ReplaceAllStringFunc(tmpl, func(ref string) string {
				col := ref[2 : len(ref)-1]
				v, ok := rec.Get(col)
				if !ok {
					missing = &models.MissingFieldError{Column: col}
				}
				return v
			})
			if missing != nil {
				return "", missing
			}
			return strings.TrimSpace(out), nil
		}, nil
	case s.Const != "":
		return Const(s.Const), nil
	default:
		return nil, fmt.Errorf("field needs one of column, const, or template")
	}
}

// LoadFile reads a custom mapping from a YAML file.
func LoadFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	m, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping file %s: %w", path, err)
	}
	return m, nil
}

// Load parses a custom mapping from YAML bytes.
func Load(data []byte) (*Mapping, error) {
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mapping yaml: %w", err)
	}

	m := &Mapping{
		Name:      file.Name,
		HasHeader: file.HasHeader,
		IsSplit:   file.IsSplit,
		DateFmt:   file.DateFmt,
		ParseFmt:  file.ParseFmt,
		FirstRow:  file.FirstRow,
		LastRow:   file.LastRow,
		FirstCol:  file.FirstCol,
	}
	if file.Delimiter != "" {
		m.Delimiter = []rune(file.Delimiter)[0]
	}

	for name, spec := range file.Fields {
		f, err := spec.fieldFunc()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if err := m.setField(name, f); err != nil {
			return nil, err
		}
	}

	if len(file.Filter) > 0 {
		specs := file.Filter
		m.Filter = func(rec models.Record) bool {
			for _, fs := range specs {
				v, _ := rec.Get(fs.Column)
				if fs.NotEmpty && strings.TrimSpace(v) == "" {
					return false
				}
				if fs.Equals != "" && v != fs.Equals {
					return false
				}
			}
			return true
		}
	}

	return m, nil
}

func (m *Mapping) setField(name string, f FieldFunc) error {
	switch name {
	case "account":
		m.Account = f
	case "account_id":
		m.AccountID = f
	case "bank":
		m.Bank = f
	case "bank_id":
		m.BankID = f
	case "date":
		m.Date = f
	case "amount":
		m.Amount = f
	case "type":
		m.Type = f
	case "payee":
		m.Payee = f
	case "desc":
		m.Desc = f
	case "notes":
		m.Notes = f
	case "class":
		m.Class = f
	case "check_num":
		m.CheckNum = f
	case "id":
		m.ID = f
	case "split_account":
		m.SplitAccount = f
	case "currency":
		m.Currency = f
	case "balance":
		m.Balance = f
	case "shares":
		m.Shares = f
	case "symbol":
		m.Symbol = f
	case "price":
		m.Price = f
	case "commission":
		m.Commission = f
	case "category":
		m.Category = f
	default:
		return fmt.Errorf("unknown mapping field %q", name)
	}
	return nil
}
