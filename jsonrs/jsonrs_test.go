package jsonrs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rudderlabs/rudder-go-kit/config"
)

func TestNew(t *testing.T) {
	t.Run("default is jsoniter", func(t *testing.T) {
		conf := config.New()
		require.IsType(t, &jsoniterJSON{}, New(conf))
	})

	t.Run("std can be selected", func(t *testing.T) {
		conf := config.New()
		conf.Set("Json.Library", StdLib)
		require.IsType(t, &stdJSON{}, New(conf))
	})
}

func TestRoundtrip(t *testing.T) {
	for _, impl := range []JSON{&stdJSON{}, &jsoniterJSON{}} {
		in := map[string]any{"name": "app_start", "count": 3.0}
		data, err := impl.Marshal(in)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, impl.Unmarshal(data, &out))
		require.Equal(t, in, out)
	}
}
