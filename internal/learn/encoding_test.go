package learn

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/frame"
)

func readFrame(t *testing.T, csv string) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return f
}

func TestOrdinalEncoder(t *testing.T) {
	f := readFrame(t, "sex,sick\nM,f\nF,t\n,f\n")
	enc := OrdinalEncoder{Columns: []string{"sex", "sick"}}
	require.NoError(t, enc.Fit(f))
	assert.Equal(t, [][]string{{"F", "M"}, {"f", "t"}}, enc.Categories)

	out, err := enc.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, out[0][:2])
	assert.True(t, math.IsNaN(out[0][2]))
	assert.Equal(t, []float64{0, 1, 0}, out[1])

	_, err = enc.Transform(readFrame(t, "sex,sick\nX,f\n"))
	assert.Error(t, err)
}

func TestOneHotEncoder_UnknownIsAllZero(t *testing.T) {
	train := readFrame(t, "referral_source\nSVI\nother\nSTMW\n")
	enc := OneHotEncoder{Columns: []string{"referral_source"}}
	require.NoError(t, enc.Fit(train))
	assert.Equal(t, 3, enc.Width())

	out, err := enc.Transform(readFrame(t, "referral_source\nother\nWEST\n"))
	require.NoError(t, err)
	require.Len(t, out, 3)
	// categories sort as STMW, SVI, other
	assert.Equal(t, []float64{0, 0}, out[0])
	assert.Equal(t, []float64{0, 0}, out[1])
	assert.Equal(t, []float64{1, 0}, out[2])
}

func TestOneHotEncoder_NullCategory(t *testing.T) {
	enc := OneHotEncoder{Columns: []string{"c"}}
	require.NoError(t, enc.Fit(readFrame(t, "c,x\na,1\n,2\n")))
	assert.Equal(t, 2, enc.Width())

	out, err := enc.Transform(readFrame(t, "c,x\n,1\na,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, out[0])
	assert.Equal(t, []float64{1, 0}, out[1])
}

func TestLabelEncoder(t *testing.T) {
	labels := []frame.Cell{frame.Str("negative"), frame.Str("hypothyroid"), frame.Str("negative")}
	var enc LabelEncoder
	require.NoError(t, enc.Fit(labels))
	assert.Equal(t, []string{"hypothyroid", "negative"}, enc.Classes)

	out, err := enc.Transform(labels)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1}, out)

	name, err := enc.Inverse(0)
	require.NoError(t, err)
	assert.Equal(t, "hypothyroid", name)

	_, err = enc.Inverse(5)
	assert.Error(t, err)

	_, err = enc.Transform([]frame.Cell{frame.Str("sick")})
	assert.Error(t, err)

	assert.Error(t, (&LabelEncoder{}).Fit([]frame.Cell{frame.NA}))
}

func TestColumnTransformer_OutputOrder(t *testing.T) {
	train := readFrame(t, "age,sex,sick,referral_source,T3\n41,F,f,SVI,2.5\n70,M,t,other,\n")
	ct := NewColumnTransformer([]string{"sex", "sick"}, []string{"referral_source"})
	require.NoError(t, ct.Fit(train))
	assert.Equal(t, []string{"age", "T3"}, ct.Passthrough)
	assert.Equal(t, 6, ct.Width())

	x, err := ct.Transform(train)
	require.NoError(t, err)
	r, c := x.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 6, c)
	// sex, sick, SVI, other, age, T3
	assert.Equal(t, []float64{0, 0, 1, 0, 41, 2.5}, x.RawRowView(0))
	row1 := x.RawRowView(1)
	assert.Equal(t, []float64{1, 1, 0, 1, 70}, row1[:5])
	assert.True(t, math.IsNaN(row1[5]))
}

func TestColumnTransformer_UnseenReferralSource(t *testing.T) {
	train := readFrame(t, "age,sex,referral_source\n41,F,SVI\n70,M,other\n")
	ct := NewColumnTransformer([]string{"sex"}, []string{"referral_source"})
	require.NoError(t, ct.Fit(train))

	x, err := ct.Transform(readFrame(t, "age,sex,referral_source\n33,F,WEST\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 33}, x.RawRowView(0))
}

func TestColumnTransformer_Errors(t *testing.T) {
	ct := NewColumnTransformer([]string{"a"}, []string{"a"})
	assert.Error(t, ct.Fit(readFrame(t, "a\nx\n")))

	ct = NewColumnTransformer([]string{"missing"}, nil)
	assert.Error(t, ct.Fit(readFrame(t, "a\nx\n")))

	ct = NewColumnTransformer(nil, nil)
	require.NoError(t, ct.Fit(readFrame(t, "a\n1\n")))
	_, err := ct.Transform(readFrame(t, "a\nnot-a-number\n"))
	assert.Error(t, err)
}
