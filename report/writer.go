package report

import (
	"errors"
	"fmt"
	"os"
)

var ErrPersistence = errors.New("report persistence failure")

// Write validates the report against the schema and writes it to path.
func Write(path string, rep Report) error {
	reportBytes, err := rep.ToJson()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if errs := Validate(reportBytes); len(errs) > 0 {
		return fmt.Errorf("%w: schema validation: %w", ErrPersistence, errors.Join(errs...))
	}

	if err = syncWriteToFile(path, reportBytes); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func Read(path string) (Report, error) {
	reportBytes, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if errs := Validate(reportBytes); len(errs) > 0 {
		return Report{}, fmt.Errorf("%w: schema validation: %w", ErrPersistence, errors.Join(errs...))
	}
	return FromJson(reportBytes)
}

func syncWriteToFile(filename string, data []byte) error {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_SYNC, 0644)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = err1
	}
	return err
}
