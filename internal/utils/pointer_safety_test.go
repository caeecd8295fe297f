package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-sponsor-gate/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPtrAndValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, "https://blog.example.com", utils.Value(utils.Ptr("https://blog.example.com")))

	p := utils.Ptr(3)
	*p = 4
	require.Equal(t, 4, utils.Value(p))
}
