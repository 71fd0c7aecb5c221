package upstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
)

const boardPage = `<html><body>
<div class="content_in">
  <div class="row"><div class="line">8</div><div class="direction">Centrum</div><div class="time">5 min</div></div>
  <div class="row"><div class="line"> 16 </div><div class="direction">Os. Sobieskiego</div><div class="time">12:40</div></div>
</div>
</body></html>`

func TestParseDepartures(t *testing.T) {
	rows, err := ParseDepartures(strings.NewReader(boardPage))
	require.NoError(t, err)

	assert.Equal(t, []domain.DepartureRow{
		{Line: "8", Direction: "Centrum", ETA: "5 min"},
		{Line: " 16 ", Direction: "Os. Sobieskiego", ETA: "12:40"},
	}, rows)
}

func TestParseDeparturesEmptyBoard(t *testing.T) {
	rows, err := ParseDepartures(strings.NewReader(`<div class="content_in"></div>`))
	require.NoError(t, err)

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestParseDeparturesErrors(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{name: "no board", page: `<html><body><h1>Access denied</h1></body></html>`},
		{name: "row without time", page: `<div class="content_in"><div class="row"><div class="line">8</div><div class="direction">Centrum</div></div></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDepartures(strings.NewReader(tt.page))
			assert.Error(t, err)
		})
	}
}

const scriptedBoardPage = `<html><body>
<div class="content_in"></div>
<script>
document.querySelector('.content_in').innerHTML =
  '<div class="row"><div class="line">8</div><div class="direction">Centrum</div><div class="time">5 min</div></div>';
</script>
</body></html>`

func TestParseStaticDepartures(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		rows    int
		wantErr error
	}{
		{name: "static board", page: boardPage, rows: 2},
		{name: "empty board without scripts", page: `<div class="content_in"></div>`, rows: 0},
		{name: "empty board filled by scripts", page: scriptedBoardPage, wantErr: ErrScriptedBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseStaticDepartures(strings.NewReader(tt.page))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}
}
