package qwixx

import (
	"testing"

	"qwixxserver/games"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStateEncoding(t *testing.T) {
	rs := newRoomState("u1")
	rs.Locks[2] = intPtr(0)
	data, err := rs.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"game":"qwixx","turnUser":"u1","roundIndex":0,"latestRoll":[1,1,1,1,1,1],"locks":[null,null,0,null]}`, string(data))

	decoded, err := DecodeRoomState(data)
	require.NoError(t, err)
	assert.Equal(t, rs, decoded)
}

func TestDecodeRoomStateRejects(t *testing.T) {
	_, err := DecodeRoomState(nil)
	assert.ErrorIs(t, err, games.ErrGameNotStarted)

	for name, data := range map[string]string{
		"other game":     `{"game":"yahtzee","turnUser":"u1","latestRoll":[1,1,1,1,1,1]}`,
		"die too high":   `{"game":"qwixx","turnUser":"u1","latestRoll":[1,1,1,1,1,7]}`,
		"die zero":       `{"game":"qwixx","turnUser":"u1","latestRoll":[0,1,1,1,1,1]}`,
		"no turn user":   `{"game":"qwixx","latestRoll":[1,1,1,1,1,1]}`,
		"lock in future": `{"game":"qwixx","turnUser":"u1","roundIndex":1,"latestRoll":[1,1,1,1,1,1],"locks":[null,3,null,null]}`,
		"not json":       `{`,
	} {
		_, err := DecodeRoomState([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestUserStateEncoding(t *testing.T) {
	data, err := newUserState().Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"game":"qwixx","latestRoundIndex":0,"boardState":[],"penalty":0}`, string(data))

	us, err := DecodeUserState([]byte(`{"game":"qwixx","latestRoundIndex":2,"boardState":["A7","AL"],"penalty":5}`))
	require.NoError(t, err)
	assert.Equal(t, 2, us.LatestRoundIndex)
	assert.Equal(t, []string{"A7", "AL"}, us.BoardState)
	assert.Equal(t, 5, us.Penalty)

	_, err = DecodeUserState([]byte(`{"game":"qwixx","boardState":["Z7"]}`))
	assert.Error(t, err)
	_, err = DecodeUserState(nil)
	assert.ErrorIs(t, err, games.ErrGameNotStarted)
}
