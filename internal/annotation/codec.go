package annotation

import (
	"encoding/json"
	"fmt"
)

// DecodePayload decodes the JSON form of the payload for variant v.
func DecodePayload(v Variant, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch v {
	case VariantImageStamp:
		p, err = decodeInto[ImageStamp](raw)
	case VariantHighlightArea:
		p, err = decodeInto[HighlightArea](raw)
	case VariantSignature:
		p, err = decodeInto[Signature](raw)
	case VariantDateTimeStamp:
		p, err = decodeInto[DateTimeStamp](raw)
	case VariantTextArea:
		p, err = decodeInto[TextArea](raw)
	case VariantImageAttachment:
		p, err = decodeInto[ImageAttachment](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", v, err)
	}
	return p, nil
}

func decodeInto[T Payload](raw []byte) (Payload, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
