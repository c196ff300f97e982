/*
Package result holds the outcome of an asynchronous computation which may
fail.

A Result is either Ok, carrying a value, or Err, carrying an error. Clients
destructure it with a type switch-like match:

    switch m := r.Match(); m {
    case m.Ok(&layout):
        …
    case m.Err(&err):
        …
    }

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package result

// Result is the outcome of a computation that may fail.
type Result[T any] interface {
	Match() Matcher[T]
	Value() (T, error)
}

type result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](x T) Result[T] {
	return result[T]{value: x}
}

// Err wraps a failure. A nil error is not allowed and panics.
func Err[T any](err error) Result[T] {
	if err == nil {
		panic("result.Err called with nil error")
	}
	return result[T]{err: err}
}

// From wraps the usual (value, error) pair.
func From[T any](x T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(x)
}

func (r result[T]) Match() Matcher[T] {
	return matcher[T]{r: r}
}

// Value unwraps a result. For failures the value is the zero value of T.
func (r result[T]) Value() (T, error) {
	return r.value, r.err
}

// --- Matching --------------------------------------------------------------

// Matcher destructures a result. Ok and Err return the matcher itself if
// their branch applies, nil otherwise.
type Matcher[T any] interface {
	Ok(*T) Matcher[T]
	Err(*error) Matcher[T]
}

type matcher[T any] struct {
	r result[T]
}

func (rm matcher[T]) Ok(v *T) Matcher[T] {
	if rm.r.err == nil {
		*v = rm.r.value
		return rm
	}
	return nil
}

func (rm matcher[T]) Err(err *error) Matcher[T] {
	if rm.r.err != nil {
		*err = rm.r.err
		return rm
	}
	return nil
}
