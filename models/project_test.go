package models_test

import (
	"context"
	"testing"

	"bitbucket.org/andeandataworks/gestion_backend/models"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectDefaultsAndValidation(t *testing.T) {
	setupAuditDB(t)
	ctx := context.Background()

	created, err := models.CreateProject(ctx, &models.NewProject{
		Code: "PRJ-100",
		Name: "Planta Norte",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "PEN", created.BaseCurrencyCode)

	fetched, err := models.GetProject(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "PRJ-100", fetched.Code)

	// code and name are mandatory
	_, err = models.CreateProject(ctx, &models.NewProject{Name: "sin codigo"})
	require.Error(t, err)

	// base currency must be a three-letter code when given
	_, err = models.CreateProject(ctx, &models.NewProject{
		Code:             "PRJ-101",
		Name:             "Planta Sur",
		BaseCurrencyCode: "pesos",
	})
	require.Error(t, err)
}
