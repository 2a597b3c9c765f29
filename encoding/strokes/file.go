package strokes

import (
	"io/ioutil"

	"github.com/pkg/errors"
)

// ReadFile loads the recording stored at path.
func ReadFile(path string) (Recording, error) {
	var rec Recording
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := rec.UnmarshalBinary(data); err != nil {
		return rec, errors.Wrapf(err, "can't read %s", path)
	}
	return rec, nil
}

func WriteFile(path string, rec Recording) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}
