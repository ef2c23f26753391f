package dynamodb

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/tagfind/value"
)

// toAttribute converts a tag value to its DynamoDB representation. Numbers
// are stored as N, so 3 and 3.0 compare equal inside DynamoDB.
func toAttribute(v value.Value) (types.AttributeValue, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return &types.AttributeValueMemberS{Value: s}, nil
	case value.KindInt:
		i, _ := v.AsInt64()
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(i, 10)}, nil
	case value.KindFloat:
		f, _ := v.AsFloat64()
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'g', -1, 64)}, nil
	case value.KindBool:
		b, _ := v.AsBool()
		return &types.AttributeValueMemberBOOL{Value: b}, nil
	default:
		return nil, fmt.Errorf("%w: %s", value.ErrUnsupportedType, v.Kind())
	}
}

// fromAttribute converts a stored attribute back into a tag value.
// Attribute types that tags never produce are reported as unsupported.
func fromAttribute(av types.AttributeValue) (value.Value, error) {
	switch a := av.(type) {
	case *types.AttributeValueMemberS:
		return value.String(a.Value), nil
	case *types.AttributeValueMemberN:
		if i, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
			return value.Int(i), nil
		}
		f, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("dynamodb: number %q: %w", a.Value, err)
		}
		return value.FromAny(f)
	case *types.AttributeValueMemberBOOL:
		return value.Bool(a.Value), nil
	default:
		return value.Value{}, fmt.Errorf("%w: attribute type %T", value.ErrUnsupportedType, av)
	}
}
