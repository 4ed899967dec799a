package contracts

type RGB8 struct {
	R, G, B uint8
}

type RGB16 struct {
	R, G, B uint16
}

// CheckShape returns a PixelShapeError when n pixels cannot form a w x h image.
func CheckShape(n, width, height int) error {
	if width < 0 || height < 0 || n != width*height {
		return &Error{
			Kind: ErrPixelShape,
			Msg:  pixelShapeMsg(n, width, height),
		}
	}
	return nil
}
