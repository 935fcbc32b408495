package rhcephpkg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrement(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"1.0.0-0redhat1", "1.0.0-1redhat1"},
		{"1.0.0-9redhat1", "1.0.0-10redhat1"},
		{"1.0.0-0.1redhat1", "1.0.0-0.2redhat1"},
		{"10.2.5-28.2.bz1464099redhat1", "10.2.5-28.3.bz1464099redhat1"},
		{"1.0.0-weird1redhat1", "1.0.0-weird1.1redhat1"},
		{"12.2.4-2redhat3", "12.2.4-3redhat3"},
		{"1.0.0-1.bz2.3redhat1", "1.0.0-1.bz2.4redhat1"},
		{"1.0.0-0.1.el7.hotfixredhat1", "1.0.0-0.2.el7.hotfixredhat1"},
		{"1.0.0-bz1.rc2redhat1", "1.0.0-bz1.rc2.1redhat1"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			v, err := ParsePackageVersion(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.in, v.String())
			require.Equal(t, tc.want, v.Increment().String())
			require.Equal(t, v.RedhatRevision, v.Increment().RedhatRevision)
		})
	}
}

func TestParsePackageVersion(t *testing.T) {
	v, err := ParsePackageVersion("10.2.5-28.2.bz1464099redhat1")
	require.NoError(t, err)
	require.Equal(t, PackageVersion{Upstream: "10.2.5", Release: "28.2.bz1464099", RedhatRevision: 1}, v)
}

func TestParsePackageVersionMalformed(t *testing.T) {
	for _, in := range []string{
		"1.0.0",
		"1.0.0-1",
		"1.0.0-1-1redhat1",
		"1.0.0-redhat1",
		"1.0.0-1redhatX",
	} {
		_, err := ParsePackageVersion(in)
		require.True(t, errors.Is(err, ErrMalformedVersion), in)
	}
}
