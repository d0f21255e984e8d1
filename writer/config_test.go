/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package writer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestConfig_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	require.Nil(t, yaml.Unmarshal([]byte(`queue_size: 128`), &cfg))
	require.Equal(t, 128, cfg.QueueSize)

	cfg = Config{}
	require.Nil(t, yaml.Unmarshal([]byte(`{}`), &cfg))
	require.Equal(t, defaultQueueSize, cfg.QueueSize)

	cfg = Config{}
	require.NotNil(t, yaml.Unmarshal([]byte(`queue_size: -1`), &cfg))

	require.NotNil(t, yaml.Unmarshal([]byte(`queue_size: [`), &cfg))
}
