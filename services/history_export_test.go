package services

import (
	"bytes"
	"testing"

	"docchat-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteHistoryWorkbook(t *testing.T) {
	turns := []models.Turn{
		{Message: "What color is the sky?", Answer: "The sky is blue."},
		{Message: "And grass?", Answer: "I don't know."},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryWorkbook(&buf, "acme", turns))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Company", "acme"}, rows[0])
	assert.Equal(t, []string{"#", "Message", "Answer"}, rows[1])
	assert.Equal(t, []string{"1", "What color is the sky?", "The sky is blue."}, rows[2])
	assert.Equal(t, "I don't know.", rows[3][2])
}
