package option_test

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meenmo/optcal/option"
)

var (
	quoteDate = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	expiry    = time.Date(2020, 4, 17, 0, 0, 0, 0, time.UTC)
)

func TestNew_YearsToMaturity(t *testing.T) {
	t.Parallel()

	o, err := option.New(option.Call, quoteDate, expiry, 3000, 3011.62, 120.44)
	require.NoError(t, err)

	assert.Equal(t, option.Call, o.Type())
	assert.True(t, o.IsCall())
	assert.Equal(t, 46.0, o.DaysToMaturity())
	assert.InDelta(t, 46.0/365.0, o.YearsToMaturity(), 1e-15)
	assert.Equal(t, 3000.0, o.Strike())
	assert.Equal(t, 3011.62, o.Spot())
	assert.Equal(t, 120.44, o.Price())
}

func TestNew_ExpiryOnValuationDate(t *testing.T) {
	t.Parallel()

	o, err := option.New(option.Put, quoteDate, quoteDate, 100, 90, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, o.YearsToMaturity())
}

func TestNew_RejectsInvalidFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		typ    option.Type
		mat    time.Time
		strike float64
		spot   float64
		price  float64
		field  string
	}{
		{"bad type", option.Type("straddle"), expiry, 100, 100, 1, "option_type"},
		{"maturity before date", option.Call, quoteDate.AddDate(0, 0, -1), 100, 100, 1, "maturity"},
		{"zero strike", option.Call, expiry, 0, 100, 1, "strike"},
		{"negative spot", option.Call, expiry, 100, -1, 1, "spot"},
		{"nan spot", option.Call, expiry, 100, math.NaN(), 1, "spot"},
		{"negative price", option.Put, expiry, 100, 100, -0.01, "price"},
		{"infinite price", option.Put, expiry, 100, 100, math.Inf(1), "price"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := option.New(tc.typ, quoteDate, tc.mat, tc.strike, tc.spot, tc.price)
			var fe *option.FieldError
			require.True(t, errors.As(err, &fe), "expected FieldError, got %v", err)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]option.Type{"c": option.Call, "CALL": option.Call, " Put ": option.Put, "p": option.Put} {
		got, err := option.ParseType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := option.ParseType("x")
	assert.Error(t, err)
}

func TestLoadCSV_BundledDataSet(t *testing.T) {
	t.Parallel()

	opts, err := option.LoadCSV(filepath.Join("testdata", "data.csv"))
	require.NoError(t, err)
	require.Len(t, opts, 72)

	first := opts[0]
	assert.Equal(t, option.Put, first.Type())
	assert.True(t, first.Date().Equal(quoteDate))
	assert.True(t, first.Maturity().Equal(expiry))
	assert.Equal(t, 2700.0, first.Strike())
	assert.Equal(t, 17.14, first.Price())
}

func TestReadCSV_AliasesAndColumnOrder(t *testing.T) {
	t.Parallel()

	in := "type,market_price,underlying,strike,expiry,valuation_date,comment\n" +
		"C,12.5,100,95,2020-06-19,2020-03-02,x\n" +
		"\n" +
		"p,3.25,100,95,19/06/2020,02/03/2020,\n"
	opts, err := option.ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, option.Call, opts[0].Type())
	assert.Equal(t, 12.5, opts[0].Price())
	assert.Equal(t, option.Put, opts[1].Type())
	assert.True(t, opts[0].Maturity().Equal(opts[1].Maturity()))
}

func TestReadCSV_Errors(t *testing.T) {
	t.Parallel()

	_, err := option.ReadCSV(strings.NewReader("date,maturity,strike\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns spot, price, option_type")

	bad := "date,maturity,strike,spot,price,option_type\n" +
		"02/03/2020,17/04/2020,100,100,1,call\n" +
		"02/03/2020,17/04/2020,NaN,100,1,call\n"
	_, err = option.ReadCSV(strings.NewReader(bad))
	var re *option.RowError
	require.True(t, errors.As(err, &re), "expected RowError, got %v", err)
	assert.Equal(t, 3, re.Line)
	var fe *option.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "strike", fe.Field)

	_, err = option.ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quotes.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"date", "maturity", "strike", "spot", "price", "option_type"},
		{"02/03/2020", "17/04/2020", "3000", "3011.62", "120.44", "call"},
		{"02/03/2020", "17/04/2020", "3000", "3011.62", "108.82", "put"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	opts, err := option.Load(path)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, option.Call, opts[0].Type())
	assert.Equal(t, 108.82, opts[1].Price())

	_, err = option.LoadXLSX(path, "Missing")
	assert.Error(t, err)
}
