package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeArgs(t *testing.T, raw string) Arguments {
	t.Helper()
	var args Arguments
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	return args
}

func TestValue_DecodeKinds(t *testing.T) {
	args := decodeArgs(t, `{
		"s": "hello",
		"n": 42,
		"f": 1.5,
		"b": true,
		"l": ["a", "b"],
		"mixed": ["a", 1],
		"obj": {"k": "v"},
		"nil": null
	}`)

	cases := map[string]Kind{
		"s":     KindString,
		"n":     KindNumber,
		"f":     KindNumber,
		"b":     KindBool,
		"l":     KindStringList,
		"mixed": KindOther,
		"obj":   KindOther,
		"nil":   KindNull,
	}
	for key, want := range cases {
		assert.Equal(t, want, args[key].Kind(), key)
	}
}

func TestArguments_String(t *testing.T) {
	args := decodeArgs(t, `{"path": "main.go", "count": 3}`)

	s, err := args.String("path")
	require.NoError(t, err)
	assert.Equal(t, "main.go", s)

	_, err = args.String("missing")
	assert.ErrorIs(t, err, ErrMissingArgument)

	_, err = args.String("count")
	var typeErr *ArgTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "count", typeErr.Key)
	assert.Equal(t, KindString, typeErr.Want)
	assert.Equal(t, KindNumber, typeErr.Got)
	assert.ErrorIs(t, err, ErrArgType)

	def, err := args.OptionalString("directory", ".")
	require.NoError(t, err)
	assert.Equal(t, ".", def)
}

func TestArguments_Int(t *testing.T) {
	args := decodeArgs(t, `{"a": 7, "b": "12", "c": 1.5, "d": "x"}`)

	n, err := args.Int("a")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = args.Int("b")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = args.Int("c")
	assert.ErrorIs(t, err, ErrArgType)

	_, err = args.Int("d")
	assert.ErrorIs(t, err, ErrArgType)

	n, err = args.OptionalInt("absent", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestArguments_StringList(t *testing.T) {
	args := decodeArgs(t, `{"args": ["-p", "src"], "bad": "src", "mixed": ["x", 2]}`)

	list, err := args.StringList("args")
	require.NoError(t, err)
	assert.Equal(t, []string{"-p", "src"}, list)

	list, err = args.StringList("absent")
	require.NoError(t, err)
	assert.Nil(t, list)

	_, err = args.StringList("bad")
	assert.ErrorIs(t, err, ErrArgType)

	_, err = args.StringList("mixed")
	assert.ErrorIs(t, err, ErrArgType)
}

func TestValue_MarshalRoundTrip(t *testing.T) {
	in := Arguments{
		"directory": StringValue("."),
		"args":      ListValue("a", "b"),
		"n":         NumberValue(3),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out := decodeArgs(t, string(data))
	for k, v := range in {
		assert.True(t, v.Equal(out[k]), k)
	}
}

func TestConversation(t *testing.T) {
	conv := NewConversation("sys")
	require.Equal(t, 1, conv.Len())
	assert.Equal(t, RoleSystem, conv.Messages()[0].Role)

	conv.Append(UserMessage("hi"), AssistantMessage("hello"))
	msgs := conv.Messages()
	msgs[1].Content = "mutated"
	assert.Equal(t, "hi", conv.Messages()[1].Content, "Messages must return a copy")

	for i := 0; i < 6; i++ {
		conv.Append(UserMessage("m"))
	}
	dropped := conv.Trim(3)
	assert.Equal(t, 5, dropped)
	assert.Equal(t, 4, conv.Len())
	assert.Equal(t, "sys", conv.System())

	conv.SetSystem("sys2")
	assert.Equal(t, "sys2", conv.System())
	assert.Equal(t, 4, conv.Len())

	conv.Reset("new")
	assert.Equal(t, 1, conv.Len())
	assert.Equal(t, "new", conv.System())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("tool").Valid())
}
