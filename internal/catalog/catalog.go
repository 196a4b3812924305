// Package catalog fetches the remote product catalog.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopcart/internal/domain/product"
)

var (
	_ product.Catalog = (*HTTPSource)(nil)
	_ product.Catalog = (*FileSource)(nil)
)

// decodeProducts reads a JSON array of catalog entries. Only title, price and
// image are kept; every other field is skipped.
func decodeProducts(d *jx.Decoder) ([]product.Product, error) {
	out := []product.Product{}
	err := d.Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "title":
				v, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "title")
				}
				p.Title = v
			case "price":
				if d.Next() != jx.Number {
					return errors.Errorf("price: unexpected %s", d.Next())
				}
				n, err := d.Num()
				if err != nil {
					return errors.Wrap(err, "price")
				}
				price, err := decimal.NewFromString(n.String())
				if err != nil {
					return errors.Wrap(err, "price")
				}
				if err := product.ValidatePrice(price); err != nil {
					return errors.Wrap(err, "price")
				}
				p.Price = price
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
		}); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return out, nil
}

// encodeProducts writes products in the same shape decodeProducts reads.
func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("title")
		e.Str(p.Title)
		e.FieldStart("price")
		e.Num(jx.Num(p.Price.String()))
		e.FieldStart("image")
		e.Str(p.Image)
		e.ObjEnd()
	}
	e.ArrEnd()
}
