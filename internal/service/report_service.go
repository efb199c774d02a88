package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pvflow/internal/dto"
	"pvflow/internal/infra"
	"pvflow/internal/model"
	"pvflow/internal/store"
	"pvflow/internal/workflow"

	"github.com/shopspring/decimal"
)

// csvHeader is the column layout of the commercial item sheet.
const csvHeader = "ITEM_CLIENTE;TAG;CODIGO;DESCRICAO;QUANTIDADE;MOEDA;VALOR_UNITARIO;FORNECEDOR"

const (
	colClientItem = iota
	colTag
	colCode
	colDescription
	colQuantity
	colCurrency
	colUnitPrice
	colSupplier
)

type ReportService interface {
	ExportXLSX(ctx context.Context, f dto.RecordFilter, w io.Writer) error
	DossierPDF(ctx context.Context, recordID string, w io.Writer) (*model.ProcessRecord, error)
	ParseItemsCSV(r io.Reader) (*dto.CSVItemsResponse, error)
	CSVTemplate() []byte
}

type reportService struct {
	records ProcessService
	st      *store.Store
	loc     *time.Location
}

func NewReportService(records ProcessService, st *store.Store, loc *time.Location) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{records: records, st: st, loc: loc}
}

func (s *reportService) ExportXLSX(ctx context.Context, f dto.RecordFilter, w io.Writer) error {
	recs, err := s.records.List(ctx, f)
	if err != nil {
		return err
	}
	return infra.WriteMasterXLSX(recs, s.loc, w)
}

func (s *reportService) DossierPDF(ctx context.Context, recordID string, w io.Writer) (*model.ProcessRecord, error) {
	rec, err := s.st.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := infra.WriteDossierPDF(rec, s.loc, w); err != nil {
		return nil, fmt.Errorf("gerar dossie: %w", err)
	}
	return rec, nil
}

var ErrEmptyCSV = errors.New("arquivo CSV vazio")

// ParseItemsCSV reads the item sheet. The first line is the header; Excel
// exports may prepend a "sep=;" line, which is skipped too. Quantity
// defaults to 1 and currency to USD, as the sheet is often filled by hand.
func (s *reportService) ParseItemsCSV(r io.Reader) (*dto.CSVItemsResponse, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4)
	if err != nil && len(first) == 0 {
		return nil, ErrEmptyCSV
	}
	offset := 0
	if strings.EqualFold(string(first), "sep=") {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, ErrEmptyCSV
		}
		offset = 1
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	resp := &dto.CSVItemsResponse{Items: []model.LineItem{}, Problems: []dto.CSVIssue{}}
	header := true
	for {
		cols, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				resp.Problems = append(resp.Problems, dto.CSVIssue{Line: perr.Line + offset, Message: perr.Err.Error()})
				continue
			}
			return nil, err
		}
		if header {
			header = false
			continue
		}
		if blankRow(cols) {
			continue
		}
		line, _ := cr.FieldPos(0)
		it, issues := csvItem(cols, line+offset)
		resp.Items = append(resp.Items, it)
		resp.Problems = append(resp.Problems, issues...)
	}
	if header {
		return nil, ErrEmptyCSV
	}
	return resp, nil
}

func csvItem(cols []string, line int) (model.LineItem, []dto.CSVIssue) {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}
	var issues []dto.CSVIssue

	it := model.LineItem{
		ClientItemNumber: get(colClientItem),
		Tag:              strings.ToUpper(get(colTag)),
		Code:             strings.ToUpper(get(colCode)),
		Description:      strings.ToUpper(get(colDescription)),
		SupplierName:     strings.ToUpper(get(colSupplier)),
		Currency:         model.Currency(strings.ToUpper(get(colCurrency))),
		Quantity:         "1",
	}
	if it.Currency == "" {
		it.Currency = model.CurrencyUSD
	}
	if !it.Currency.Valid() {
		issues = append(issues, dto.CSVIssue{Line: line, Message: fmt.Sprintf("moeda %q desconhecida, usando USD", it.Currency)})
		it.Currency = model.CurrencyUSD
	}

	if q, err := workflow.ParseQuantity(get(colQuantity)); err == nil && q.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		it.Quantity = q.String()
	}

	raw := get(colUnitPrice)
	if raw == "" {
		it.UnitPrice = decimal.Zero
	} else if p, err := workflow.ParseQuantity(raw); err == nil {
		it.UnitPrice = p
	} else {
		issues = append(issues, dto.CSVIssue{Line: line, Message: fmt.Sprintf("valor unitario %q invalido", raw)})
	}
	if it.Code == "" {
		issues = append(issues, dto.CSVIssue{Line: line, Message: "codigo do item vazio"})
	}
	return it, issues
}

func blankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (s *reportService) CSVTemplate() []byte {
	var b bytes.Buffer
	b.WriteString("sep=;\n")
	b.WriteString(csvHeader)
	b.WriteString("\n")
	return b.Bytes()
}
