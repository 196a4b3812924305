package handler

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopcart/internal/domain/cart"
	"github.com/xenking/shopcart/internal/domain/product"
)

// money renders d with exactly two decimal places as a JSON number.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	if p.ID != 0 {
		e.FieldStart("id")
		e.Int64(p.ID)
	}
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("image")
	e.Str(p.Image)
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(l.ID)
	e.FieldStart("productId")
	e.Int64(l.ProductID)
	e.FieldStart("title")
	e.Str(l.Title)
	e.FieldStart("price")
	money(e, l.Price)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("subtotal")
	money(e, l.Subtotal())
	e.ObjEnd()
}

func encodeView(e *jx.Encoder, v cart.View) {
	items, price := v.Summary()

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range v.Items {
		encodeLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("totalCount")
	e.Int(v.TotalCount)
	e.FieldStart("totalPrice")
	money(e, v.TotalPrice)
	e.FieldStart("isEmpty")
	e.Bool(v.IsEmpty)
	e.FieldStart("summary")
	e.ObjStart()
	e.FieldStart("items")
	e.Str(items)
	e.FieldStart("price")
	e.Str(price)
	e.ObjEnd()
	e.ObjEnd()
}

// encodeResult writes a quantity change or removal outcome.
func encodeResult(e *jx.Encoder, res cart.Result) {
	e.ObjStart()
	if res.Message != "" {
		e.FieldStart("message")
		e.Str(res.Message)
	}
	e.FieldStart("cart")
	encodeView(e, res.View)
	e.ObjEnd()
}

func encodeAddResult(e *jx.Encoder, res cart.AddResult) {
	e.ObjStart()
	e.FieldStart("message")
	e.Str(res.Notification.Message)
	e.FieldStart("cartVisible")
	e.Bool(res.Notification.CartVisible)
	e.FieldStart("totalCount")
	e.Int(res.Notification.TotalCount)
	e.FieldStart("productCreated")
	e.Bool(res.ProductCreated)
	e.FieldStart("line")
	encodeLine(e, res.Line)
	e.ObjEnd()
}

// decodeAddRequest reads {"title":..., "price":..., "image":...}. Title and
// price are required; unknown fields are ignored.
func decodeAddRequest(r io.Reader) (product.Product, error) {
	var (
		p                  product.Product
		hasTitle, hasPrice bool
	)
	d := jx.Decode(r, 512)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "title":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "title")
			}
			p.Title, hasTitle = v, true
		case "price":
			if d.Next() != jx.Number {
				return errors.New("price must be a number")
			}
			n, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			if p.Price, err = decimal.NewFromString(n.String()); err != nil {
				return errors.Wrap(err, "price")
			}
			hasPrice = true
		case "image":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "image")
			}
			p.Image = v
		default:
			return d.Skip()
		}
		return nil
	})
	switch {
	case err != nil:
		return p, errors.Wrap(err, "invalid request body")
	case !hasTitle:
		return p, errors.New("title is required")
	case !hasPrice:
		return p, errors.New("price is required")
	}
	return p, nil
}
