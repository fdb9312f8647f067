package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ex = "http://example.org/def#"
)

var (
	address = Predicate{IRI: ex + "address"}
	street  = Predicate{IRI: ex + "street"}
	partOf  = Predicate{IRI: ex + "partOf"}
)

func TestSeq_RightFold(t *testing.T) {
	got := Seq(address, street)
	assert.Equal(t, Sequence{First: address, Rest: Sequence{First: street, Rest: End{}}}, got)

	assert.Equal(t, Sequence{First: address, Rest: End{}}, Seq(address))
	assert.Equal(t, End{}, Seq())
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name string
		path PropertyPath
		want []Segment
	}{
		{"predicate", address, []Segment{{IRI: ex + "address"}}},
		{"sequence", Seq(address, street), []Segment{
			{IRI: ex + "address"}, {IRI: ex + "street"},
		}},
		{"inverse predicate", Inverse{Of: partOf}, []Segment{
			{IRI: ex + "partOf", Inverse: true},
		}},
		{"inverse of sequence reverses order and direction", Inverse{Of: Seq(address, street)}, []Segment{
			{IRI: ex + "street", Inverse: true}, {IRI: ex + "address", Inverse: true},
		}},
		{"double inverse cancels", Inverse{Of: Inverse{Of: Seq(address, street)}}, []Segment{
			{IRI: ex + "address"}, {IRI: ex + "street"},
		}},
		{"nested sequence flattens", Seq(Seq(address, street), Inverse{Of: partOf}), []Segment{
			{IRI: ex + "address"}, {IRI: ex + "street"}, {IRI: ex + "partOf", Inverse: true},
		}},
		{"end", End{}, nil},
		{"pointer predicate", &address, []Segment{{IRI: ex + "address"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(tt.path))
		})
	}
}

func TestSegments_Restartable(t *testing.T) {
	segs := Segments(Seq(address, street))

	var first, second []Segment
	for s := range segs {
		first = append(first, s)
	}
	for s := range segs {
		second = append(second, s)
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestSegments_EarlyBreak(t *testing.T) {
	n := 0
	for range Segments(Seq(address, street, partOf)) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		path PropertyPath
		want string
	}{
		{"predicate", address, "<http://example.org/def#address>"},
		{"sequence", Seq(address, street), "<http://example.org/def#address>/<http://example.org/def#street>"},
		{"single element sequence", Seq(address), "<http://example.org/def#address>"},
		{"inverse", Inverse{Of: partOf}, "^<http://example.org/def#partOf>"},
		{"inverse of single element sequence", Inverse{Of: Seq(partOf)}, "^<http://example.org/def#partOf>"},
		{"inverse of sequence", Inverse{Of: Seq(address, street)}, "^(<http://example.org/def#address>/<http://example.org/def#street>)"},
		{"double inverse", Inverse{Of: Inverse{Of: partOf}}, "^(^<http://example.org/def#partOf>)"},
		{"end", End{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.String())
		})
	}
}

func TestSegment_String(t *testing.T) {
	assert.Equal(t, "<a>", Segment{IRI: "a"}.String())
	assert.Equal(t, "^<a>", Segment{IRI: "a", Inverse: true}.String())
}

func TestIsSimple(t *testing.T) {
	assert.True(t, IsSimple(address))
	assert.True(t, IsSimple(Seq(address)))
	assert.True(t, IsSimple(Inverse{Of: Inverse{Of: address}}))
	assert.False(t, IsSimple(Inverse{Of: address}))
	assert.False(t, IsSimple(Seq(address, street)))
	assert.False(t, IsSimple(End{}))
}

func TestIsSingleInverse(t *testing.T) {
	assert.True(t, IsSingleInverse(Inverse{Of: partOf}))
	assert.True(t, IsSingleInverse(Seq(Inverse{Of: partOf})))
	assert.False(t, IsSingleInverse(partOf))
	assert.False(t, IsSingleInverse(Inverse{Of: Seq(address, street)}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		path    PropertyPath
		wantErr string
	}{
		{"predicate", address, ""},
		{"sequence", Seq(address, Inverse{Of: street}), ""},
		{"nil", nil, "path is nil"},
		{"empty iri", Predicate{}, "empty IRI"},
		{"nil sequence part", Sequence{First: address}, "nil part"},
		{"inverse of nil", Inverse{}, "inverse of nil"},
		{"no segments", Seq(), "no segments"},
		{"sequence of ends", Seq(End{}, End{}), "no segments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.path)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPath)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
