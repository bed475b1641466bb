package model_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		err      error
	}{
		{scenario: "single object", given: `{"samples": 1}`},
		{scenario: "trailing whitespace", given: "{\"samples\": 1}\n\t \n"},
		{scenario: "second object", given: "{\"samples\": 1}\n{\"samples\": 2}", err: model.ErrTrailingData},
		{scenario: "garbage", given: `{"samples": 1} garbage`, err: model.ErrTrailingData},
		{scenario: "stray bracket", given: `{"samples": 1}]`, err: model.ErrTrailingData},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			var record model.Record
			err := model.DecodeJSON(strings.NewReader(tt.given), &record)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, model.Record{"samples": json.Number("1")}, record)
		})
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	t.Parallel()
	var record model.Record
	err := model.DecodeJSON(strings.NewReader(`{"samples":`), &record)
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrTrailingData)
}
